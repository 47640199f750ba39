package cli

import (
	"context"
	"fmt"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, username and password and creates an
// account, signing it in on success.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	ident, err := a.svc.Register(ctx, email, password, username)
	if err != nil {
		return err
	}

	fmt.Printf("Welcome, %s!\n", ident.DisplayName)
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	ident, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("Welcome back, %s!\n", ident.DisplayName)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.lastFeed = nil
	return a.provider.SignOut(ctx)
}

func (a *App) WhoAmI(ctx context.Context) error {
	ident := a.session.Identity()
	if ident == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("%s (%s)\n", ident.DisplayName, ident.UID)
	if ident.PhotoURL != "" {
		fmt.Printf("avatar: %s\n", ident.PhotoURL)
	}
	return nil
}

// DeleteAccount removes the signed-in account with its posts and profile
// after an explicit confirmation.
func (a *App) DeleteAccount(ctx context.Context) error {
	ident := a.session.Identity()
	if ident == nil {
		return fmt.Errorf("not signed in")
	}

	answer, err := getSimpleText(a.reader, "This removes your account, posts and profile. Type 'yes' to continue", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Println("Cancelled.")
		return nil
	}

	a.lastFeed = nil
	if err := a.svc.DeleteAccount(ctx, *ident); err != nil {
		return err
	}
	fmt.Println("Account deleted.")
	return nil
}
