package main

import (
	"context"
	"time"

	"github.com/yedirenklicinar/akademi/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	prof, err := cli.profRepo.GetProfile(ctx, user.GetFilter{Email: email})
	if err != nil {
		return err
	}
	if err := prof.SetPassword(pwd); err != nil {
		return err
	}
	prof.UpdatedAt = time.Now().UTC()
	if _, err := cli.profRepo.UpdateProfile(ctx, prof); err != nil {
		return err
	}
	return nil
}
