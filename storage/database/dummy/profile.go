package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/user"
)

type profileRepository struct {
	db *profileTable
}

var _ user.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) user.Repository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) query() []user.Profile {
	profs := make([]user.Profile, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		profs = append(profs, *p)
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].CreatedAt.After(profs[j].CreatedAt) })
	return profs
}

func (repo *profileRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...user.Profile) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prof := range repo.query() {
		if prof.Email != email {
			continue
		}
		var isExcluded bool
		for _, ex := range excluded {
			if ex.ID == prof.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return user.ErrProfileExists
		}
	}
	return nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prof.ID = uuid.New().String()
	repo.db.table[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter *user.QueryFilter, _ []core.DBOrdering) ([]user.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	profs := repo.query()
	if filter == nil || filter.IsEmpty() {
		return profs, nil
	}

	var filtered []user.Profile
	search := strings.ToLower(filter.Search)
	for _, p := range profs {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.FullName), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.GradeID != nil && (p.GradeID == nil || *p.GradeID != *filter.GradeID) {
			continue
		}
		if filter.IsActive != nil && (p.IsActive == nil || *p.IsActive != *filter.IsActive) {
			continue
		}
		if !filter.CreatedFrom.IsZero() && p.CreatedAt.Before(filter.CreatedFrom.UTC()) {
			continue
		}
		if !filter.CreatedTo.IsZero() && p.CreatedAt.After(filter.CreatedTo.UTC()) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

func (repo *profileRepository) GetProfile(ctx context.Context, filter user.GetFilter) (user.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if prof, ok := repo.db.table[filter.ID]; ok {
			return *prof, nil
		}
		return user.Profile{}, user.ErrNotFound
	}
	for _, prof := range repo.db.table {
		if prof.Email == filter.Email {
			return *prof, nil
		}
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	orig, ok := repo.db.table[prof.ID]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	if prof.FullName != "" {
		orig.FullName = prof.FullName
	}
	if prof.Email != "" {
		orig.Email = prof.Email
	}
	if prof.Role != "" {
		orig.Role = prof.Role
	}
	if prof.Permissions != nil {
		orig.Permissions = prof.Permissions
	}
	if prof.GradeID != nil {
		orig.GradeID = prof.GradeID
	}
	if prof.IsActive != nil {
		orig.IsActive = prof.IsActive
	}
	if prof.PasswordHash != nil {
		orig.PasswordHash = prof.PasswordHash
	}
	if !prof.UpdatedAt.IsZero() {
		orig.UpdatedAt = prof.UpdatedAt
	}
	if !prof.LastLogin.IsZero() {
		orig.LastLogin = prof.LastLogin
	}
	return *orig, nil
}

func (repo *profileRepository) UpdateOrCreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	if prof.ID == "" {
		return repo.CreateProfile(ctx, prof)
	}
	return repo.UpdateProfile(ctx, prof)
}

func (repo *profileRepository) DeleteProfilesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
