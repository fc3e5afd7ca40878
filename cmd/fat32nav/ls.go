package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the directory at --path",
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	fat, file, err := openImage()
	if err != nil {
		return err
	}
	defer file.Close()

	dir, err := fat.Open(imagePath)
	if err != nil {
		return err
	}
	defer dir.Close()

	infos, err := dir.Readdir(-1)
	if err != nil {
		return err
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(os.Stdout)
	writer.AppendHeader(table.Row{"NAME", "SIZE", "MODIFIED"})
	for _, info := range infos {
		name := info.Name()
		size := humanize.IBytes(uint64(info.Size()))
		if info.IsDir() {
			name += "/"
			size = "-"
		}
		modified := "-"
		if !info.ModTime().IsZero() {
			modified = info.ModTime().Format("2006-01-02 15:04:05")
		}
		writer.AppendRow(table.Row{name, size, modified})
	}
	writer.Render()

	return nil
}
