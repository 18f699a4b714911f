package branches

import (
	"math/rand/v2"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
)

type bookAssignment struct {
	bookID   string
	branches []catalog.BranchAssignment
}

type batchPlan struct {
	primaryID string
	books     []bookAssignment
}

// roundRobin hands out primaries in list order, wrapping at the end.
type roundRobin struct {
	branches []catalog.Branch
	next     int
}

func (r *roundRobin) take() int {
	index := r.next
	r.next = (r.next + 1) % len(r.branches)
	return index
}

// planBatches requires len(branches) > SupplementaryBranches.
func planBatches(books []catalog.Book, branches []catalog.Branch, random *rand.Rand) []batchPlan {
	scheduler := &roundRobin{branches: branches}
	plans := make([]batchPlan, 0, (len(books)+BatchSize-1)/BatchSize)

	for start := 0; start < len(books); start += BatchSize {
		end := min(start+BatchSize, len(books))
		primary := scheduler.take()
		selected := append([]int{primary}, sampleOthers(len(branches), primary, SupplementaryBranches, random)...)

		plan := batchPlan{primaryID: branches[primary].ID, books: make([]bookAssignment, 0, end-start)}
		for _, book := range books[start:end] {
			assignments := make([]catalog.BranchAssignment, 0, len(selected))
			for _, index := range selected {
				assignments = append(assignments, branches[index].Assignment(1+random.IntN(MaxCopies)))
			}
			plan.books = append(plan.books, bookAssignment{bookID: book.ID, branches: assignments})
		}
		plans = append(plans, plan)
	}
	return plans
}

// sampleOthers draws count distinct indexes in [0, size) excluding skip.
func sampleOthers(size, skip, count int, random *rand.Rand) []int {
	candidates := make([]int, 0, size-1)
	for index := range size {
		if index != skip {
			candidates = append(candidates, index)
		}
	}
	for i := range count {
		j := i + random.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:count]
}
