package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/client/client"
	"github.com/dmitrijs2005/filevault/internal/client/config"
)

type App struct {
	config   *config.Config
	client   client.Client
	reader   *bufio.Reader
	out      io.Writer
	userName string
	// path from the root to the current folder; empty at the root
	path []*api.FolderInfo
}

func NewApp(c *config.Config) (*App, error) {
	cl, err := client.NewFileVaultClient(c.ServerEndpointAddr, c.RequestTimeout, c.ChunkSize)
	if err != nil {
		return nil, err
	}
	return newApp(c, cl, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, cl client.Client, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: cl, reader: bufio.NewReader(in), out: out}
}

func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.client.Close() }()

	fmt.Fprintln(a.out, "filevault CLI (type 'help' for commands)")
	if err := a.client.Ping(ctx); err != nil {
		fmt.Fprintln(a.out, "Warning: server is not reachable:", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// currentFolder returns the id of the current folder, nil at the root.
func (a *App) currentFolder() *string {
	if len(a.path) == 0 {
		return nil
	}
	return &a.path[len(a.path)-1].ID
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	names := make([]string, 0, len(a.path))
	for _, f := range a.path {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("(%s:/%s)", a.userName, strings.Join(names, "/"))
}
