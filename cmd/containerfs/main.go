// Command containerfs is the command-line driver for the container
// filesystem: it parses arguments, splits the in-container path into
// components, and invokes the corresponding volume operation.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	cerrors "containerfs/errors"
	"containerfs/volume"
)

func main() {
	app := &cli.App{
		Name:  "containerfs",
		Usage: "inspect and manipulate a sector-based container filesystem",
		Commands: []*cli.Command{
			initCommand,
			mkdirCommand,
			touchCommand,
			gulpCommand,
			appendCommand,
			catCommand,
			lsCommand,
			rmCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "containerfs: %s\n", err)
		os.Exit(1)
	}
}

var initCommand = &cli.Command{
	Name:      "init",
	Usage:     "create a new container file",
	ArgsUsage: "CONTAINER",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "overwrite", Usage: "replace an existing container file"},
	},
	Action: func(c *cli.Context) error {
		path, err := requireArg(c, 0, "CONTAINER")
		if err != nil {
			return err
		}
		if verr := volume.Init(path, c.Bool("overwrite")); verr != nil {
			return verr
		}
		return nil
	},
}

var mkdirCommand = &cli.Command{
	Name:      "mkdir",
	Usage:     "create a directory",
	ArgsUsage: "CONTAINER PATH",
	Action: func(c *cli.Context) error {
		containerPath, innerPath, err := requireContainerAndPath(c)
		if err != nil {
			return err
		}
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			return v.Mkdir(splitPath(innerPath))
		})
	},
}

var touchCommand = &cli.Command{
	Name:      "touch",
	Usage:     "create an empty user file",
	ArgsUsage: "CONTAINER PATH",
	Action: func(c *cli.Context) error {
		containerPath, innerPath, err := requireContainerAndPath(c)
		if err != nil {
			return err
		}
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			return v.Touch(splitPath(innerPath))
		})
	},
}

var gulpCommand = &cli.Command{
	Name:      "gulp",
	Usage:     "overwrite a user file's content from a host file",
	ArgsUsage: "CONTAINER PATH SOURCE",
	Action: func(c *cli.Context) error {
		containerPath, innerPath, err := requireContainerAndPath(c)
		if err != nil {
			return err
		}
		sourcePath, err := requireArg(c, 2, "SOURCE")
		if err != nil {
			return err
		}
		data, rerr := os.ReadFile(sourcePath)
		if rerr != nil {
			return rerr
		}
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			return v.Overwrite(splitPath(innerPath), data)
		})
	},
}

var appendCommand = &cli.Command{
	Name:      "append",
	Usage:     "append a host file's content to a user file",
	ArgsUsage: "CONTAINER PATH SOURCE",
	Action: func(c *cli.Context) error {
		containerPath, innerPath, err := requireContainerAndPath(c)
		if err != nil {
			return err
		}
		sourcePath, err := requireArg(c, 2, "SOURCE")
		if err != nil {
			return err
		}
		data, rerr := os.ReadFile(sourcePath)
		if rerr != nil {
			return rerr
		}
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			return v.Append(splitPath(innerPath), data)
		})
	},
}

var catCommand = &cli.Command{
	Name:      "cat",
	Usage:     "print a user file's content to standard output",
	ArgsUsage: "CONTAINER PATH",
	Action: func(c *cli.Context) error {
		containerPath, innerPath, err := requireContainerAndPath(c)
		if err != nil {
			return err
		}
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			data, cerr := v.Cat(splitPath(innerPath))
			if cerr != nil {
				return cerr
			}
			os.Stdout.Write(data)
			return nil
		})
	},
}

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "list a directory, or describe a user file",
	ArgsUsage: "CONTAINER [PATH]",
	Action: func(c *cli.Context) error {
		containerPath, err := requireArg(c, 0, "CONTAINER")
		if err != nil {
			return err
		}
		innerPath := c.Args().Get(1)
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			lines, lerr := v.List(splitPath(innerPath))
			if lerr != nil {
				return lerr
			}
			for _, line := range lines {
				fmt.Println(line)
			}
			return nil
		})
	},
}

var rmCommand = &cli.Command{
	Name:      "rm",
	Usage:     "remove a directory or user file, reaping its subtree",
	ArgsUsage: "CONTAINER PATH",
	Action: func(c *cli.Context) error {
		containerPath, innerPath, err := requireContainerAndPath(c)
		if err != nil {
			return err
		}
		return withVolume(containerPath, func(v *volume.Volume) cerrors.VolumeError {
			return v.Remove(splitPath(innerPath))
		})
	},
}

// requireArg fetches positional argument i, failing with a usage-shaped
// error if it is absent.
func requireArg(c *cli.Context, i int, name string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("missing required argument %s", name)
	}
	return v, nil
}

func requireContainerAndPath(c *cli.Context) (containerPath, innerPath string, err error) {
	containerPath, err = requireArg(c, 0, "CONTAINER")
	if err != nil {
		return "", "", err
	}
	innerPath, err = requireArg(c, 1, "PATH")
	if err != nil {
		return "", "", err
	}
	return containerPath, innerPath, nil
}

// splitPath breaks a '/'-separated in-container path into components,
// ignoring leading, trailing, or repeated slashes — a leading '/' carries no
// special meaning (spec.md §6).
func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	raw := strings.Split(p, "/")
	components := make([]string, 0, len(raw))
	for _, part := range raw {
		if part != "" {
			components = append(components, part)
		}
	}
	return components
}

// withVolume opens the container at path, runs fn against it, and closes
// the host file, aggregating an operation failure and a close failure into
// one error rather than discarding either.
func withVolume(path string, fn func(v *volume.Volume) cerrors.VolumeError) error {
	v, f, err := volume.Open(path)
	if err != nil {
		return err
	}

	var result *multierror.Error
	if opErr := fn(v); opErr != nil {
		result = multierror.Append(result, opErr)
	}
	if closeErr := f.Close(); closeErr != nil {
		result = multierror.Append(result, closeErr)
	}
	if result != nil {
		// Keep the diagnostic on one line; the default format spans several.
		result.ErrorFormat = func(es []error) string {
			msgs := make([]string, len(es))
			for i, e := range es {
				msgs[i] = e.Error()
			}
			return strings.Join(msgs, "; ")
		}
	}
	return result.ErrorOrNil()
}
