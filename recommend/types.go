package recommend

import (
	"math"
	"time"

	"github.com/poiesic/fabmatch/conversation"
	"github.com/poiesic/fabmatch/core"
)

// Request limits.
const (
	DefaultTopK = 5
	MaxTopK     = 10
)

// Messages used when the generator cannot be relied on.
const (
	DefaultExplanation = "위 장비들을 추천드립니다."
	defaultReasonFmt   = "%s 장비로, 요청 조건과 유사합니다."
	defaultPicks       = 3
	streamDisplay      = 3
	summaryNames       = 3
)

// Request is one user query.
type Request struct {
	Query           string
	SessionID       string         // Empty starts a new session
	TopK            int            // 0 selects DefaultTopK
	Filters         map[string]any // Extra metadata filters, see core.FilterFromMap
	UserInstitution string         // Requester's institution, ranked first
}

// Item is one recommended piece of equipment.
type Item struct {
	EquipmentID    string
	Name           string
	Category       string
	Score          float64 // Combined score rounded to two decimals
	Reason         string
	Institution    string
	ReservationURL string
	WaferSizes     []string
	Materials      []string
	FilterPassed   bool
}

func newItem(c *core.Candidate, reason string) Item {
	e := c.Equipment
	return Item{
		EquipmentID:    e.ID,
		Name:           e.Name,
		Category:       e.Category,
		Score:          math.Round(c.Combined*100) / 100,
		Reason:         reason,
		Institution:    e.Institution,
		ReservationURL: e.ReservationURL,
		WaferSizes:     e.WaferSizes,
		Materials:      e.Materials,
		FilterPassed:   c.FilterPassed,
	}
}

// Response is the result of Pipeline.Ask.
type Response struct {
	Query           string
	Recommendations []Item
	Explanation     string
	SessionID       string
	TurnCount       int
	FollowUp        conversation.FollowUp
	Conditions      *core.Conditions
	Intent          *core.Intent // nil unless the query needed deep parsing
	Fallback        bool         // No candidate passed the filters
	Cached          bool         // Generator output came from the cache
	Elapsed         time.Duration
}

// EventKind identifies a streamed event.
type EventKind string

const (
	EventEquipment EventKind = "equipment"
	EventToken     EventKind = "token"
	EventError     EventKind = "error"
	EventDone      EventKind = "done"
)

// Event is one element of a streamed response. The equipment event, if any,
// comes first; done or error comes last.
type Event struct {
	Kind      EventKind
	SessionID string
	Equipment []Item
	Token     string
	Err       error
}
