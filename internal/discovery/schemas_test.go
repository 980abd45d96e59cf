package discovery_test

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tablescan/internal/discovery"
)

func seqOf(items ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, seq iter.Seq2[string, error]) []string {
	t.Helper()
	var out []string
	for s, err := range seq {
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestFilterSchemas(t *testing.T) {
	tests := []struct {
		name     string
		schemas  []string
		excluded discovery.SchemaSet
		want     []string
	}{
		{
			name:     "drops excluded and keeps order",
			schemas:  []string{"sales", "pg_catalog", "public", "information_schema", "audit"},
			excluded: discovery.NewSchemaSet("pg_catalog", "information_schema"),
			want:     []string{"sales", "public", "audit"},
		},
		{
			name:     "nil set excludes nothing",
			schemas:  []string{"b", "a"},
			excluded: nil,
			want:     []string{"b", "a"},
		},
		{
			name:     "matching is exact",
			schemas:  []string{"Public", "public"},
			excluded: discovery.NewSchemaSet("public"),
			want:     []string{"Public"},
		},
		{
			name:     "everything excluded",
			schemas:  []string{"sys"},
			excluded: discovery.NewSchemaSet("sys"),
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, discovery.FilterSchemas(seqOf(tt.schemas...), tt.excluded))
			assert.Equal(t, tt.want, got)
			for _, s := range got {
				assert.False(t, tt.excluded.Contains(s))
			}
		})
	}
}

func TestFilterSchemas_PassesErrorsThrough(t *testing.T) {
	boom := errors.New("catalog unavailable")
	src := func(yield func(string, error) bool) {
		if !yield("public", nil) {
			return
		}
		yield("", boom)
	}

	var (
		names []string
		got   error
	)
	for s, err := range discovery.FilterSchemas(src, discovery.NewSchemaSet("public")) {
		if err != nil {
			got = err
			break
		}
		names = append(names, s)
	}

	assert.Empty(t, names)
	assert.ErrorIs(t, got, boom)
}

func TestFilterSchemas_StopsWhenConsumerStops(t *testing.T) {
	pulled := 0
	src := func(yield func(string, error) bool) {
		for _, s := range []string{"a", "b", "c"} {
			pulled++
			if !yield(s, nil) {
				return
			}
		}
	}

	for range discovery.FilterSchemas(src, nil) {
		break
	}

	assert.Equal(t, 1, pulled)
}

func TestSchemaSet_Union(t *testing.T) {
	a := discovery.NewSchemaSet("sys", "guest")
	b := discovery.NewSchemaSet("audit")

	u := a.Union(b)

	assert.Equal(t, []string{"audit", "guest", "sys"}, u.Names())
	assert.Len(t, a, 2, "receiver is not modified")
	assert.Empty(t, discovery.SchemaSet(nil).Union(nil))
}
