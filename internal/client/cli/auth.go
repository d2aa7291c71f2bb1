package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
)

func (a *App) credentials() (string, []byte, error) {
	userName, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	if userName == "" {
		return "", nil, errors.New("username must not be empty")
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.client.Register(ctx, userName, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered. You can log in now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, userName, password); err != nil {
		return err
	}
	a.userName = userName
	a.path = nil
	fmt.Fprintln(a.out, "Logged in as", userName)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.client.Logout()
	a.userName = ""
	a.path = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
