package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/user"
)

// addProfile updates or creates a user.Profile
func (cli *commandLine) addProfile(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	prof, err := cli.profRepo.GetProfile(ctx, user.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		prof = user.Profile{
			Email:     email,
			Role:      user.RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	prof.FullName = name
	if isAdmin {
		prof.Role = user.RoleAdmin
	}
	prof.SetActive(true)
	if err := prof.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.profRepo.UpdateOrCreateProfile(ctx, prof); err != nil {
		return err
	}
	return nil
}
