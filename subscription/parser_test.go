package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrammarParse(t *testing.T) {
	g := Grammar{Prefix: "!", ListNoun: "packages", URLFragment: "example.org/package/"}

	tests := map[string]struct {
		line string
		want Command
	}{
		"subscribe": {
			line: "!obs.example.org/package/foo/bar",
			want: Command{Kind: Candidate, Args: "obs.example.org/package/foo/bar"},
		},
		"unsubscribe": {
			line: "! unsub obs.example.org/package/foo/bar",
			want: Command{Kind: Candidate, Args: "unsub obs.example.org/package/foo/bar", Unsubscribe: true},
		},
		"list":             {line: "!list packages", want: Command{Kind: ListRequest, Args: "list packages"}},
		"list other noun":  {line: "!list requests", want: Command{Kind: NotForMe}},
		"other domain":     {line: "!obs.example.org/request/show/1", want: Command{Kind: NotForMe}},
		"no prefix":        {line: "obs.example.org/package/foo/bar", want: Command{Kind: NotForMe}},
		"prefix only":      {line: "!", want: Command{Kind: NotForMe}},
		"other backend":    {line: "!build.other.net/package/show/foo/bar", want: Command{Kind: NotForMe}},
		"help is not mine": {line: "!help", want: Command{Kind: NotForMe}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Parse(tt.line))
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	routes := []Route{
		{Suffix: "obs.request.change", Change: "changed by admin"},
		{Suffix: "obs.request.state_change", Change: "changed"},
	}

	change, ok := Classify(routes, "opensuse.obs.request.state_change")
	assert.True(t, ok)
	assert.Equal(t, "changed", change)

	change, ok = Classify(routes, "opensuse.obs.request.change")
	assert.True(t, ok)
	assert.Equal(t, "changed by admin", change)

	assert.Equal(t, []string{"obs.request.change", "obs.request.state_change"}, RoutingKeys(routes))
}
