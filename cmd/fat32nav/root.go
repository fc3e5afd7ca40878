package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kesmeh/fat32nav"
)

// logLevelEnv configures the diagnostic verbosity, accepting any level
// logrus understands. The --verbose flag overrides it with debug.
const logLevelEnv = "FAT32NAV_LOG"

var (
	imageFile string
	imagePath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "fat32nav",
	Short:         "Inspect and mount FAT32 disk images, read-only",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
	// Listing is the default action.
	RunE: runLs,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&imageFile, "file", "f", "", "path to the FAT32 image file")
	rootCmd.PersistentFlags().StringVarP(&imagePath, "path", "p", "", "path inside the image (default is the root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	if err := rootCmd.MarkPersistentFlagRequired("file"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(lsCmd, catCmd, exportCmd, mountCmd)
}

// Execute runs the command line. Any failure prints a single-line
// diagnostic on standard error and exits with code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fat32nav:", err)
		os.Exit(1)
	}
}

func configureLogging() {
	log.SetLevel(log.WarnLevel)
	if level, err := log.ParseLevel(os.Getenv(logLevelEnv)); err == nil {
		log.SetLevel(level)
	}
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// openImage opens the image file and parses it. The caller closes the
// returned file when done.
func openImage() (*fat32nav.Fs, *os.File, error) {
	file, err := os.Open(imageFile)
	if err != nil {
		return nil, nil, err
	}

	fat, err := fat32nav.New(file)
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"image":    imageFile,
		"label":    fat.Label(),
		"clusters": fat.TotalClusters(),
	}).Debug("image opened")

	return fat, file, nil
}
