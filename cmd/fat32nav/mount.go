package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kesmeh/fat32nav/fuse"
)

var (
	mountPath     string
	refreshOnCall bool
	allowOther    bool
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount the image as a read-only filesystem",
	Args:  cobra.NoArgs,
	RunE:  runMount,
}

func init() {
	mountCmd.Flags().StringVarP(&mountPath, "mount-path", "m", "", "mount point for the image")
	mountCmd.Flags().BoolVar(&refreshOnCall, "refresh", false, "re-read the image before every filesystem callback")
	mountCmd.Flags().BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	if err := mountCmd.MarkFlagRequired("mount-path"); err != nil {
		panic(err)
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	server, err := fuse.Mount(fuse.Options{
		ImagePath:     imageFile,
		Mountpoint:    mountPath,
		RefreshOnCall: refreshOnCall,
		AllowOther:    allowOther,
		Logger:        log.StandardLogger(),
	})
	if err != nil {
		return err
	}

	log.WithField("mountpoint", mountPath).Info("serving in the foreground, unmount to stop")
	server.Wait()

	return nil
}
