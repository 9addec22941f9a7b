package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-vdisk/vdisk"
	"github.com/go-vdisk/vdisk/presets"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Create and manipulate vdisk image files",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create a new, empty disk image",
				Action:    formatImage,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "preset",
						Usage: "named geometry preset to use, see `vdiskctl presets`",
					},
				},
			},
			{
				Name:      "put",
				Usage:     "Create or overwrite a file with the contents of a local file",
				Action:    putFile,
				ArgsUsage: "IMAGE_FILE NAME LOCAL_FILE",
			},
			{
				Name:      "append",
				Usage:     "Append the contents of a local file to an existing file",
				Action:    appendFile,
				ArgsUsage: "IMAGE_FILE NAME LOCAL_FILE",
			},
			{
				Name:      "get",
				Usage:     "Print a file's contents to stdout",
				Action:    getFile,
				ArgsUsage: "IMAGE_FILE NAME",
			},
			{
				Name:      "rm",
				Usage:     "Delete a file",
				Action:    removeFile,
				ArgsUsage: "IMAGE_FILE NAME",
			},
			{
				Name:      "ls",
				Usage:     "List every file on the disk",
				Action:    listFiles,
				ArgsUsage: "IMAGE_FILE",
			},
			{
				Name:   "presets",
				Usage:  "List named geometry presets",
				Action: listPresets,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return cli.Exit("expected exactly one argument: IMAGE_FILE", 1)
	}

	var geometry []vdisk.Geometry
	if slug := ctx.String("preset"); slug != "" {
		preset, err := presets.Get(slug)
		if err != nil {
			return err
		}
		geometry = []vdisk.Geometry{preset.Geometry()}
	}

	disk, err := vdisk.Create(ctx.Args().First(), geometry...)
	if err != nil {
		return err
	}
	return disk.Close()
}

func putFile(ctx *cli.Context) error {
	if ctx.Args().Len() != 3 {
		return cli.Exit("expected arguments: IMAGE_FILE NAME LOCAL_FILE", 1)
	}

	data, err := os.ReadFile(ctx.Args().Get(2))
	if err != nil {
		return err
	}

	return withDisk(ctx.Args().First(), func(disk *vdisk.Disk) error {
		return disk.CreateFileWithData(ctx.Args().Get(1), data)
	})
}

func appendFile(ctx *cli.Context) error {
	if ctx.Args().Len() != 3 {
		return cli.Exit("expected arguments: IMAGE_FILE NAME LOCAL_FILE", 1)
	}

	data, err := os.ReadFile(ctx.Args().Get(2))
	if err != nil {
		return err
	}

	return withDisk(ctx.Args().First(), func(disk *vdisk.Disk) error {
		return disk.AppendFile(ctx.Args().Get(1), data)
	})
}

func getFile(ctx *cli.Context) error {
	if ctx.Args().Len() != 2 {
		return cli.Exit("expected arguments: IMAGE_FILE NAME", 1)
	}

	return withDisk(ctx.Args().First(), func(disk *vdisk.Disk) error {
		data, err := disk.ReadFile(ctx.Args().Get(1))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	})
}

func removeFile(ctx *cli.Context) error {
	if ctx.Args().Len() != 2 {
		return cli.Exit("expected arguments: IMAGE_FILE NAME", 1)
	}

	return withDisk(ctx.Args().First(), func(disk *vdisk.Disk) error {
		return disk.DeleteFile(ctx.Args().Get(1))
	})
}

func listFiles(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return cli.Exit("expected exactly one argument: IMAGE_FILE", 1)
	}

	return withDisk(ctx.Args().First(), func(disk *vdisk.Disk) error {
		for _, name := range disk.ListFiles() {
			size, _, _ := disk.Stat(name)
			fmt.Printf("%10d  %s\n", size, name)
		}
		return nil
	})
}

func listPresets(_ *cli.Context) error {
	for _, slug := range presets.Names() {
		preset, _ := presets.Get(slug)
		fmt.Printf("%-16s  %s\n", slug, preset.Description)
	}
	return nil
}

// withDisk opens an existing image, runs fn against it, and flushes it to
// disk regardless of whether fn succeeded.
func withDisk(path string, fn func(*vdisk.Disk) error) error {
	disk, err := vdisk.LoadFromFile(path)
	if err != nil {
		return err
	}

	fnErr := fn(disk)
	closeErr := disk.Close()
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}
