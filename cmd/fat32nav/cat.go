package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kesmeh/fat32nav"
	"github.com/kesmeh/fat32nav/checkpoint"
)

var catCmd = &cobra.Command{
	Use:   "cat",
	Short: "Write the file at --path to standard output",
	Args:  cobra.NoArgs,
	RunE:  runCat,
}

func runCat(cmd *cobra.Command, args []string) error {
	fat, file, err := openImage()
	if err != nil {
		return err
	}
	defer file.Close()

	return streamFile(fat, imagePath, os.Stdout)
}

// streamFile copies the content of the file at path into sink in
// cluster-friendly chunks.
func streamFile(fat *fat32nav.Fs, path string, sink io.Writer) error {
	info, err := fat.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return checkpoint.From(fat32nav.ErrIsADirectory)
	}

	source, err := fat.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	buffer := make([]byte, 32*1024)
	_, err = io.CopyBuffer(sink, source, buffer)
	return err
}
