package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/client/client"
)

// findFolder looks up a child of parent by id or name.
func (a *App) findFolder(ctx context.Context, parent *string, ref string) (*api.FolderInfo, error) {
	folders, err := a.client.ListFolders(ctx, parent)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if f.ID == ref || f.Name == ref {
			return f, nil
		}
	}
	return nil, fmt.Errorf("folder %q: %w", ref, client.ErrNotFound)
}

// resolveFolder turns "/" into the root and anything else into a child of
// the current folder.
func (a *App) resolveFolder(ctx context.Context, ref string) (*string, error) {
	if ref == "/" {
		return nil, nil
	}
	f, err := a.findFolder(ctx, a.currentFolder(), ref)
	if err != nil {
		return nil, err
	}
	return &f.ID, nil
}

func (a *App) ChangeDir(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cd <folder|..|/>", errUsage)
	}
	switch args[0] {
	case "/":
		a.path = nil
	case "..":
		if len(a.path) > 0 {
			a.path = a.path[:len(a.path)-1]
		}
	default:
		f, err := a.findFolder(ctx, a.currentFolder(), args[0])
		if err != nil {
			return err
		}
		a.path = append(a.path, f)
	}
	return nil
}

func (a *App) MakeDir(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: mkdir <name>", errUsage)
	}
	f, err := a.client.CreateFolder(ctx, args[0], a.currentFolder())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Created", f.Name, f.ID)
	return nil
}

// RemoveDir deletes a folder below the current one. Files inside go to
// the trash.
func (a *App) RemoveDir(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rmdir <folder>", errUsage)
	}
	f, err := a.findFolder(ctx, a.currentFolder(), args[0])
	if err != nil {
		return err
	}
	if !Confirm(a.reader, fmt.Sprintf("Delete folder %s and move its files to the trash?", f.Name), a.out) {
		return nil
	}
	n, err := a.client.DeleteFolder(ctx, f.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s, %d file(s) moved to trash\n", f.Name, n)
	return nil
}
