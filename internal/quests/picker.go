package quests

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"kelvin-backend/internal/models"
)

// questNamespace scopes name-based quest IDs so they cannot collide with
// UUIDs derived for other purposes.
var questNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://kelvin.app/quests"))

// Source is the random capability the picker draws from. *rand.Rand from
// math/rand/v2 satisfies it but is not safe for concurrent use; pass nil to
// NewPicker to use the package-level generator instead.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

type Picker struct {
	catalog *Catalog
	rnd     Source
}

func NewPicker(catalog *Catalog, rnd Source) *Picker {
	if rnd == nil {
		rnd = globalSource{}
	}
	return &Picker{catalog: catalog, rnd: rnd}
}

// Pick draws one quest uniformly at random. Draws are independent, so
// consecutive calls may repeat.
func (p *Picker) Pick() models.Quest {
	text := p.catalog.At(p.rnd.IntN(p.catalog.Len()))
	return models.Quest{ID: QuestID(text), Text: text}
}

// Catalog returns the catalog the picker draws from.
func (p *Picker) Catalog() *Catalog { return p.catalog }

// QuestID derives a stable identifier from the quest text.
func QuestID(text string) string {
	return uuid.NewSHA1(questNamespace, []byte(text)).String()
}
