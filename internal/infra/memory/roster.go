package memory

import "elearning-quiz-service/internal/domain"

// Roster is a pre-loaded list of users. Lookups are exact and case-sensitive;
// on duplicate emails the first entry wins.
type Roster struct {
	byEmail map[string]domain.User
	size    int
}

func NewRoster(users []domain.User) *Roster {
	r := &Roster{byEmail: make(map[string]domain.User, len(users))}
	for _, u := range users {
		if _, seen := r.byEmail[u.Email]; seen {
			continue
		}
		r.byEmail[u.Email] = u
	}
	r.size = len(r.byEmail)
	return r
}

func (r *Roster) Lookup(email string) (domain.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Len returns the number of distinct users.
func (r *Roster) Len() int {
	return r.size
}
