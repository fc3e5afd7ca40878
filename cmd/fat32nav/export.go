package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy the file at --path out of the image",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "export-path", "e", "", "destination for the exported file")
	if err := exportCmd.MarkFlagRequired("export-path"); err != nil {
		panic(err)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	fat, file, err := openImage()
	if err != nil {
		return err
	}
	defer file.Close()

	destination, err := os.OpenFile(exportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := streamFile(fat, imagePath, destination); err != nil {
		destination.Close()
		return err
	}
	if err := destination.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", exportPath, err)
	}

	log.WithFields(log.Fields{"path": imagePath, "destination": exportPath}).Debug("file exported")

	return nil
}
