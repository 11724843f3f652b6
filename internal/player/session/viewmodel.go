package session

import (
	"github.com/statusplay/statusplay/internal/types"
)

// ViewModel is the single derived snapshot the presentation layer observes.
// It is a value copy; rendering never touches engine state directly.
type ViewModel struct {
	State        State
	User         types.StatusUser
	Posts        []types.StatusPost
	CurrentIndex int
	CurrentPost  *types.StatusPost

	// ProgressByIndex holds 100 for played posts, the live progress for the
	// current one and 0 for upcoming ones.
	ProgressByIndex []float64

	IsPaused bool
	IsOwner  bool

	// ViewerCounts maps post id to distinct viewer count; only meaningful
	// for the owner.
	ViewerCounts map[string]int
}

// ViewModel derives the current presentation snapshot.
func (s *Session) ViewModel() ViewModel {
	vm := ViewModel{
		State:   s.State(),
		User:    s.store.User(),
		Posts:   s.store.Posts(),
		IsOwner: s.IsOwner(),
	}

	vm.CurrentIndex = s.nav.Index()
	vm.IsPaused = s.nav.Held()

	progress := s.timer.Progress()
	vm.ProgressByIndex = make([]float64, len(vm.Posts))
	for i := range vm.ProgressByIndex {
		switch {
		case i < vm.CurrentIndex:
			vm.ProgressByIndex[i] = 100
		case i == vm.CurrentIndex:
			vm.ProgressByIndex[i] = progress
		}
	}

	if vm.CurrentIndex >= 0 && vm.CurrentIndex < len(vm.Posts) {
		p := vm.Posts[vm.CurrentIndex]
		vm.CurrentPost = &p
	}

	if vm.IsOwner {
		vm.ViewerCounts = make(map[string]int, len(vm.Posts))
		for _, p := range vm.Posts {
			vm.ViewerCounts[p.ID] = len(p.Viewers)
		}
	}

	return vm
}
