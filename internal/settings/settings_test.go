package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clo/cli/internal/domain"
	apperr "clo/cli/internal/errors"
	"clo/cli/internal/model"
	"clo/cli/internal/types"
)

func intp(n int) *int { return &n }

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		s    func(*Settings)
		want string
	}{
		{
			name: "search without filters",
			s:    func(s *Settings) { s.Action = Search },
			want: "Model['res.users'].Search([], offset=0)",
		},
		{
			name: "search with logic",
			s: func(s *Settings) {
				s.Action = Search
				s.Criteria = domain.List{
					domain.Or,
					domain.Domain{Field: "login", Operator: "=", Value: "demo"},
					domain.Domain{Field: "name", Operator: "ilike", Value: "o'brien"},
				}
				s.Limit = intp(5)
				s.Order = "login"
			},
			want: `Model['res.users'].Search(['|', ['login', '=', 'demo'], ['name', 'ilike', "o'brien"]], offset=0, limit=5, order='login')`,
		},
		{
			name: "count with limit",
			s: func(s *Settings) {
				s.Action = Count
				s.Limit = intp(3)
			},
			want: "Model['res.users'].Count([], limit=3)",
		},
		{
			name: "read to csv file",
			s: func(s *Settings) {
				s.Action = Read
				s.IDs = []int{2, 6}
				s.Fields = []string{"login", "name"}
				s.CSV = true
				s.Out = "users.csv"
			},
			want: "Model['res.users'].Read([2, 6], fields=['login', 'name']) -> users.csv (CSV)",
		},
		{
			name: "read every field",
			s: func(s *Settings) {
				s.Action = Read
				s.IDs = []int{2}
			},
			want: "Model['res.users'].Read([2])",
		},
		{
			name: "find every field",
			s:    func(s *Settings) { s.Action = Find },
			want: "Model['res.users'].Find([], offset=0)",
		},
		{
			name: "write",
			s: func(s *Settings) {
				s.Action = Write
				s.Model = "res.partner"
				s.IDs = []int{1}
				s.Values = Values{{"name", "Acme"}, {"city", "Paris"}}
			},
			want: "Model['res.partner'].Write([1], {'name': 'Acme', 'city': 'Paris'})",
		},
		{
			name: "create from records",
			s: func(s *Settings) {
				s.Action = Create
				s.Records = []map[string]any{{"name": "A", "login": "a"}}
			},
			want: "Model['res.users'].Create([{'login': 'a', 'name': 'A'}])",
		},
		{
			name: "fields",
			s: func(s *Settings) {
				s.Action = Fields
				s.Attributes = []string{"type"}
			},
			want: "Model['res.users'].Fields(attributes=['type'])",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.s(s)
			assert.Equal(t, tt.want, s.Describe())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       func(*Settings)
		wantErr string
	}{
		{"ok", func(s *Settings) { s.Action = Search }, ""},
		{"negative offset", func(s *Settings) { s.Action = Search; s.Offset = -1 }, "offset must be at least 0"},
		{"negative limit", func(s *Settings) { s.Action = Count; s.Limit = intp(-2) }, "limit must be at least 0"},
		{"missing ids", func(s *Settings) { s.Action = Delete }, "ids is required"},
		{"bad topic", func(s *Settings) { s.Action = Explain; s.Topic = "weather" }, "topic must be one of"},
		{"missing topic", func(s *Settings) { s.Action = Explain }, "topic is required"},
		{"bad instance", func(s *Settings) { s.Action = Search; s.Instance = types.URL("localhost") }, "instance must be a URL"},
		{"dangling marker", func(s *Settings) {
			s.Action = Search
			s.Criteria = domain.List{domain.And, domain.Domain{Field: "a", Operator: "=", Value: "1"}}
		}, "logic marker '&'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.s(s)
			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, apperr.Argument, apperr.KindOf(err))
		})
	}
}

func TestActionOperation(t *testing.T) {
	op, ok := Delete.Operation()
	require.True(t, ok)
	assert.Equal(t, model.Delete, op)

	_, ok = Explain.Operation()
	assert.False(t, ok)
}

func TestKwargs(t *testing.T) {
	s := New()
	s.Action = Find
	s.Fields = []string{"login"}
	s.Order = "id desc"
	assert.Equal(t, map[string]any{"fields": []string{"login"}, "offset": 0, "order": "id desc"}, s.Kwargs())
	assert.Equal(t, []any{domain.List{}}, s.Positional())
}

func TestStringMasksPassword(t *testing.T) {
	s := New()
	s.Action = Search
	s.Password = types.NewSecret("hunter2")
	assert.Contains(t, s.String(), "password='*******'")
	assert.NotContains(t, s.String(), "hunter2")
}

func TestRepr(t *testing.T) {
	assert.Equal(t, "None", Repr(nil))
	assert.Equal(t, "True", Repr(true))
	assert.Equal(t, `'a\\b'`, Repr(`a\b`))
	assert.Equal(t, `'it\'s "x"'`, Repr(`it's "x"`))
	assert.Equal(t, "[1, 'a', None]", Repr([]any{1, "a", nil}))
}
