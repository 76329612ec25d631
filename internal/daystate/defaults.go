package daystate

import (
	"sort"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
)

type defaultBlock struct {
	label    string
	category string
	minutes  float64
}

// defaultDay is the timeline given to a user with no templates
var defaultDay = []defaultBlock{
	{"Wake + Warm-up", "routine", 90},
	{"Deep Work", "work", 150},
	{"Break + Movement", "movement", 30},
	{"Food + Admin", "routine", 90},
	{"Dota", "leisure", 90},
	{"Light Work", "work", 90},
	{"Wind-down", "routine", 120},
	{"Bed (Comics)", "routine", 120},
}

// defaultCategories are returned to users who never saved their own
var defaultCategories = []models.Category{
	{ID: "work", Name: "Work", Color: "#3b82f6", Icon: "briefcase", Order: 0},
	{ID: "movement", Name: "Movement", Color: "#22c55e", Icon: "activity", Order: 1},
	{ID: "routine", Name: "Routine", Color: "#a855f7", Icon: "repeat", Order: 2},
	{ID: "leisure", Name: "Leisure", Color: "#f59e0b", Icon: "gamepad-2", Order: 3},
}

// DefaultBlocks builds the built-in day with fresh block ids
func DefaultBlocks(newID func() string) []models.Block {
	blocks := make([]models.Block, 0, len(defaultDay))
	for i, d := range defaultDay {
		blocks = append(blocks, models.Block{
			ID:              newID(),
			Label:           d.label,
			Category:        d.category,
			EstimateMinutes: d.minutes,
			Sessions:        []models.TimeSession{},
			Order:           float64(i),
		})
	}
	return blocks
}

// DefaultCategories returns a copy of the built-in categories
func DefaultCategories() []models.Category {
	out := make([]models.Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

// BlocksFromTemplates seeds a day from the visible templates in template
// order. Tasks are copied uncompleted; sessions start empty.
func BlocksFromTemplates(templates []models.BlockTemplate, newID func() string) []models.Block {
	visible := make([]models.BlockTemplate, 0, len(templates))
	for _, t := range templates {
		if !t.IsHidden {
			visible = append(visible, t)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].Order < visible[j].Order })

	blocks := make([]models.Block, 0, len(visible))
	for i, t := range visible {
		var tasks []models.Task
		for _, tt := range t.Tasks {
			task := models.Task{ID: tt.ID, Name: tt.Name, Order: tt.Order}
			if tt.EstimateMinutes != nil {
				est := *tt.EstimateMinutes
				task.EstimateMinutes = &est
			}
			tasks = append(tasks, task)
		}
		blocks = append(blocks, models.Block{
			ID:               newID(),
			Label:            t.Label,
			Category:         t.Category,
			EstimateMinutes:  t.DefaultMinutes,
			UseTaskEstimates: t.UseTaskEstimates,
			Tasks:            tasks,
			Sessions:         []models.TimeSession{},
			Order:            float64(i),
		})
	}
	return blocks
}

func newUUID() string {
	return uuid.NewString()
}
