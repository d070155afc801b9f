package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fe2audio/service/internal/blob"
	"github.com/fe2audio/service/internal/client"
	"github.com/fe2audio/service/internal/credential"
	"github.com/fe2audio/service/internal/studio"
	"github.com/fe2audio/service/internal/uploader"
)

var errUsage = errors.New("invalid usage")

type app struct {
	cfg       *Config
	out       io.Writer
	prompt    func() (string, error)
	clipboard uploader.Clipboard
}

func newApp(cfg *Config, out io.Writer) *app {
	return &app{cfg: cfg, out: out}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "upload":
		return a.upload(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "login":
		fmt.Fprintf(a.out, "Open %s/auth/login in a browser and keep the returned token.\n", strings.TrimRight(a.cfg.APIURL, "/"))
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// session returns an API client, asking for the token when none is configured.
func (a *app) session() (*client.Client, error) {
	token := a.cfg.Token
	if token == "" && a.prompt != nil {
		var err error
		if token, err = a.prompt(); err != nil {
			return nil, err
		}
	}
	return client.New(a.cfg.APIURL, token, a.cfg.Timeout), nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "display title (defaults to the file name)")
	public := fs.Bool("public", false, "make the upload public")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	path := fs.Arg(0)

	if _, err := uploader.DetectType(uploader.File{Name: path}); err != nil {
		return err
	}
	if a.cfg.CredentialSecret == "" {
		return errors.New("credential_secret is not configured")
	}
	opener, err := credential.NewSealer(a.cfg.CredentialSecret, 0)
	if err != nil {
		return err
	}
	api, err := a.session()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	o := uploader.New(api, opener, blob.NewClient(a.cfg.BlobEndpoint, a.cfg.Timeout), a.clipboard, a.cfg.UploadDomain)
	res, err := o.Upload(ctx, uploader.File{Name: path, Body: f}, *title, !*public)
	var metaErr *uploader.MetadataError
	if errors.As(err, &metaErr) {
		fmt.Fprintf(a.out, "File stored at %s but not recorded; keep this link.\n", metaErr.Link)
	}
	if err != nil {
		return err
	}

	visibility := "private"
	if !res.Private {
		visibility = "public"
	}
	fmt.Fprintf(a.out, "Uploaded %q (%s)\n%s\n", res.Title, visibility, res.Link)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("search", "", "only show titles containing this text")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	api, err := a.session()
	if err != nil {
		return err
	}
	uploads, err := api.List(ctx)
	if errors.Is(err, client.ErrNotFound) {
		fmt.Fprintln(a.out, "No uploads yet.")
		return nil
	}
	if err != nil {
		return err
	}

	uploads = client.Search(uploads, *search)
	client.SortNewest(uploads)
	if len(uploads) == 0 {
		fmt.Fprintln(a.out, "No matching uploads.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tUPLOADED\tLINK")
	for _, u := range uploads {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Name, u.CreatedAt.Local().Format(time.DateTime), u.Link)
	}
	return tw.Flush()
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "new title")
	visibility := fs.String("visibility", "", "public or private")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	var (
		newTitle  *string
		newPublic *bool
	)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "title" {
			newTitle = title
		}
	})
	switch *visibility {
	case "":
	case "public", "private":
		p := *visibility == "public"
		newPublic = &p
	default:
		return fmt.Errorf("%w: visibility must be public or private", errUsage)
	}

	api, err := a.session()
	if err != nil {
		return err
	}
	e := studio.New(api, a.cfg.UploadDomain)
	if state := e.Open(ctx, fs.Arg(0)); state != studio.Ready {
		return fmt.Errorf("%s: %s", state, e.Err)
	}

	if newTitle == nil && newPublic == nil {
		fmt.Fprintf(a.out, "%s (public: %t)\n", e.Title, e.Public)
		return nil
	}
	if err := e.Save(ctx, newTitle, newPublic); err != nil {
		return err
	}
	fmt.Fprintln(a.out, e.Message)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	api, err := a.session()
	if err != nil {
		return err
	}
	if err := api.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", args[0])
	return nil
}
