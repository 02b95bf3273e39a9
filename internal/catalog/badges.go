package catalog

import (
	"fmt"

	"github.com/vitrina-labs/vitrina/internal/model"
)

// MaxVisibleTags is the number of tag badges a catalog card shows before
// collapsing the remainder into an overflow marker.
const MaxVisibleTags = 3

// TagBadges projects an agent's tag list into card badges: the first
// MaxVisibleTags tags verbatim, plus a "+N" marker for the rest. An empty tag
// list yields zero badges and no marker.
func TagBadges(tags []string) model.Badges {
	if len(tags) <= MaxVisibleTags {
		return model.Badges{Visible: tags}
	}
	return model.Badges{
		Visible:  tags[:MaxVisibleTags],
		Overflow: fmt.Sprintf("+%d", len(tags)-MaxVisibleTags),
	}
}
