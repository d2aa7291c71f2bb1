package cli

import (
	"context"
	"fmt"
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dustin/go-humanize"
)

func (a *App) List(ctx context.Context, args []string) error {
	folder := a.currentFolder()
	if len(args) > 0 {
		f, err := a.resolveFolder(ctx, args[0])
		if err != nil {
			return err
		}
		folder = f
	}

	folders, err := a.client.ListFolders(ctx, folder)
	if err != nil {
		return err
	}
	files, err := a.client.ListFiles(ctx, folder)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, f := range folders {
		fmt.Fprintf(tw, "%s\t%s/\t\t\n", f.ID, f.Name)
	}
	printFiles(tw, files)
	return tw.Flush()
}

func printFiles(tw *tabwriter.Writer, files []*api.FileInfo) {
	for _, f := range files {
		flag := ""
		if f.IsInfected {
			flag = "INFECTED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", f.ID, f.Filename, f.Size, f.UploadedAt.Format(time.DateTime), flag)
	}
}

// Upload sends a local file into the current folder, optionally under a
// different name.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: upload <local path> [name]", errUsage)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	name := filepath.Base(args[0])
	if len(args) == 2 {
		name = args[1]
	}

	f, err := a.client.Upload(ctx, a.currentFolder(), name, contentType(name, data), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s (%d bytes), id %s\n", f.Filename, f.Size, f.ID)
	return nil
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: download <file id>", errUsage)
	}
	f, data, err := a.client.Download(ctx, args[0])
	if err != nil {
		return err
	}

	dir, err := filex.EnsureDir(a.config.DownloadDir)
	if err != nil {
		return err
	}
	path, err := filex.SafeJoin(dir, f.Filename)
	if err != nil {
		return err
	}
	if err := filex.WriteNew(path, data); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved to", path)
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm <file id>", errUsage)
	}
	if err := a.client.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Moved to trash")
	return nil
}

func (a *App) Restore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: restore <file id>", errUsage)
	}
	f, err := a.client.Restore(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Restored", f.Filename)
	return nil
}

func (a *App) Trash(ctx context.Context) error {
	files, err := a.client.ListTrash(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "Trash is empty")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, f := range files {
		deleted := ""
		if f.DeletedAt != nil {
			deleted = f.DeletedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\tdeleted %s\n", f.ID, f.Filename, f.Size, deleted)
	}
	return tw.Flush()
}

// Move puts a file into a folder; "/" is the root.
func (a *App) Move(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: mv <file id> <folder|/>", errUsage)
	}
	folder, err := a.resolveFolder(ctx, args[1])
	if err != nil {
		return err
	}
	f, err := a.client.Move(ctx, args[0], folder)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Moved", f.Filename)
	return nil
}

func (a *App) Rename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: rename <file id> <new name>", errUsage)
	}
	f, err := a.client.Rename(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Renamed to", f.Filename)
	return nil
}

func (a *App) Find(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: find <name fragment>", errUsage)
	}
	files, err := a.client.Search(ctx, api.SearchFilesRequest{Filename: args[0]})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	printFiles(tw, files)
	return tw.Flush()
}

func (a *App) Usage(ctx context.Context) error {
	u, err := a.client.Usage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Used %d of %d bytes, %d available\n", u.Used, u.Limit, u.Available)
	return nil
}

// Settings prints the storage limit, or sets it when a size such as
// "500MB" or "2GiB" is given.
func (a *App) Settings(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: settings [storage limit]", errUsage)
	}
	if len(args) == 0 {
		st, err := a.client.Settings(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Storage limit: %s (%d bytes)\n", humanize.IBytes(uint64(st.StorageLimit)), st.StorageLimit)
		return nil
	}

	limit, err := humanize.ParseBytes(args[0])
	if err != nil || limit > math.MaxInt64 {
		return fmt.Errorf("invalid storage limit %q", args[0])
	}
	st, err := a.client.UpdateSettings(ctx, int64(limit))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Storage limit set to %s\n", humanize.IBytes(uint64(st.StorageLimit)))
	return nil
}

func (a *App) Cleanup(ctx context.Context) error {
	if !Confirm(a.reader, "Permanently delete expired files from the trash?", a.out) {
		return nil
	}
	if err := a.client.CleanupTrash(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Trash cleanup scheduled")
	return nil
}
