package service

import (
	"time"

	"studynote/internal/model"
)

// Distribution counts tasks along each dimension the analytics view
// charts, over an optional inclusive due-date range.
type Distribution struct {
	Total    int
	Status   map[model.Status]int
	Priority map[model.Priority]int
	Category map[model.Category]int
}

// Distribute computes status, priority and category counts for the tasks
// whose due date falls inside the range. Nil bounds are open.
func Distribute(tasks []model.Task, from, to *time.Time) Distribution {
	dist := Distribution{
		Status:   make(map[model.Status]int),
		Priority: make(map[model.Priority]int),
		Category: make(map[model.Category]int),
	}
	for _, t := range ApplyFilter(tasks, Filter{From: from, To: to}) {
		dist.Total++
		dist.Status[t.Status]++
		dist.Priority[t.Priority]++
		dist.Category[t.Category]++
	}
	return dist
}
