package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dmitrijs2005/filevault/internal/remote"
	"github.com/dmitrijs2005/filevault/internal/vault"
	"github.com/dmitrijs2005/filevault/internal/vault/models"
	"github.com/dmitrijs2005/filevault/internal/vault/services"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "apply database migrations",
	Action: func(c *cli.Context) error {
		return withApp(c, func(ctx context.Context, app *vault.App) error {
			return app.Migrate(ctx)
		})
	},
}

var mkdirCmd = &cli.Command{
	Name:      "mkdir",
	Usage:     "create a folder for the user",
	ArgsUsage: "NAME",
	Action: func(c *cli.Context) error {
		u, err := callerFrom(c)
		if err != nil {
			return err
		}
		if err := u.requireUser(); err != nil {
			return err
		}
		if c.NArg() != 1 {
			return fmt.Errorf("expected exactly one folder name")
		}

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			f, err := app.Folders.Create(ctx, u.UserID, c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d\t%s\n", f.ID, f.RemotePath)
			return nil
		})
	},
}

var foldersCmd = &cli.Command{
	Name:  "folders",
	Usage: "list folders",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "all", Usage: "list every user's folders (admin)"},
	},
	Action: func(c *cli.Context) error {
		u, err := callerFrom(c)
		if err != nil {
			return err
		}
		if c.Bool("all") {
			if err := u.requireAdmin(); err != nil {
				return err
			}
		} else if err := u.requireUser(); err != nil {
			return err
		}

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			var list []*models.Folder
			if c.Bool("all") {
				list, err = app.Folders.ListAll(ctx)
			} else {
				list, err = app.Folders.ListByUser(ctx, u.UserID)
			}
			if err != nil {
				return err
			}
			printFolders(c.App.Writer, list)
			return nil
		})
	},
}

var uploadCmd = &cli.Command{
	Name:      "upload",
	Usage:     "upload a local file",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "folder", Usage: "target folder id"},
		&cli.StringFlag{Name: "type", Usage: "content type, detected when empty"},
	},
	Action: func(c *cli.Context) error {
		u, err := callerFrom(c)
		if err != nil {
			return err
		}
		if err := u.requireUser(); err != nil {
			return err
		}
		if c.NArg() != 1 {
			return fmt.Errorf("expected exactly one file path")
		}
		src := c.Args().First()
		original := filepath.Base(src)

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			// The upload consumes its input, so it gets a private copy.
			staged, size, err := filex.Stage(src, app.StagingDir, uuid.NewString()+filepath.Ext(original))
			if err != nil {
				return err
			}

			req := services.UploadRequest{
				UserID:       u.UserID,
				LocalPath:    staged,
				Filename:     storedName(filex.SafeBase(original), time.Now()),
				OriginalName: original,
				Size:         size,
				ContentType:  c.String("type"),
			}
			if c.IsSet("folder") {
				id := c.Int64("folder")
				req.FolderID = &id
			}

			f, err := app.Uploads.Upload(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d\t%s\t%d\n", f.ID, f.RemotePath, f.FileSize)
			return nil
		})
	},
}

var downloadCmd = &cli.Command{
	Name:      "download",
	Usage:     "download a file by id",
	ArgsUsage: "ID",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path, stdout when empty"},
	},
	Action: func(c *cli.Context) error {
		u, err := callerFrom(c)
		if err != nil {
			return err
		}
		id, err := fileID(c)
		if err != nil {
			return err
		}

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			file, err := app.Files.Get(ctx, id)
			if err != nil {
				return err
			}
			if err := u.canRead(file); err != nil {
				return err
			}

			out := c.String("out")
			if out == "" {
				_, err := app.Downloads.StreamTo(ctx, file, c.App.Writer)
				return err
			}

			dst, err := os.Create(out)
			if err != nil {
				return err
			}
			_, err = app.Downloads.StreamTo(ctx, file, dst)
			if cerr := dst.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = filex.RemoveIfExists(out)
				return err
			}
			return nil
		})
	},
}

var lsCmd = &cli.Command{
	Name:  "ls",
	Usage: "list file records",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "folder", Usage: "only files in this folder"},
		&cli.BoolFlag{Name: "all", Usage: "list every user's files (admin)"},
		&cli.Int64Flag{Name: "owner", Usage: "list files of another user (admin)"},
	},
	Action: func(c *cli.Context) error {
		u, err := callerFrom(c)
		if err != nil {
			return err
		}

		var folderID *int64
		if c.IsSet("folder") {
			id := c.Int64("folder")
			folderID = &id
		}

		owner := u.UserID
		all := c.Bool("all")
		switch {
		case all:
			if err := u.requireAdmin(); err != nil {
				return err
			}
		case c.IsSet("owner"):
			if err := u.requireAdmin(); err != nil {
				return err
			}
			owner = c.Int64("owner")
		default:
			if err := u.requireUser(); err != nil {
				return err
			}
		}

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			var list []*models.File
			if all {
				list, err = app.Files.ListAll(ctx, folderID)
			} else {
				list, err = app.Files.ListByUser(ctx, owner, folderID)
			}
			if err != nil {
				return err
			}
			printFiles(c.App.Writer, list)
			return nil
		})
	},
}

var rmCmd = &cli.Command{
	Name:      "rm",
	Usage:     "delete a file record and its remote object (admin)",
	ArgsUsage: "ID",
	Action: func(c *cli.Context) error {
		u := caller{UserID: c.Int64("user"), Admin: c.Bool("admin")}
		if err := u.requireAdmin(); err != nil {
			return err
		}
		id, err := fileID(c)
		if err != nil {
			return err
		}

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			f, err := app.Files.Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "deleted %d\t%s\n", f.ID, f.RemotePath)
			return nil
		})
	},
}

var remoteLsCmd = &cli.Command{
	Name:      "remote-ls",
	Usage:     "list a directory on the remote store (admin)",
	ArgsUsage: "[PATH]",
	Action: func(c *cli.Context) error {
		u := caller{UserID: c.Int64("user"), Admin: c.Bool("admin")}
		if err := u.requireAdmin(); err != nil {
			return err
		}

		return withApp(c, func(ctx context.Context, app *vault.App) error {
			entries, err := app.Files.ListRemote(ctx, c.Args().First())
			if err != nil {
				return err
			}
			printEntries(c.App.Writer, entries)
			return nil
		})
	},
}

func fileID(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one file id")
	}
	var id int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", c.Args().First())
	}
	return id, nil
}

func printFiles(w io.Writer, list []*models.File) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tNAME\tSIZE\tTYPE\tREMOTE PATH\tCREATED")
	for _, f := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\t%s\n",
			f.ID, f.UserID, f.OriginalName, f.FileSize, f.FileType, f.RemotePath, f.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func printFolders(w io.Writer, list []*models.Folder) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tNAME\tREMOTE PATH\tCREATED")
	for _, f := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", f.ID, f.UserID, f.Name, f.RemotePath, f.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func printEntries(w io.Writer, entries []remote.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSIZE\tPATH")
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", kind, e.Size, e.Path)
	}
	tw.Flush()
}
