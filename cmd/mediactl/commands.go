package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/gathr/service/internal/entity"
	"github.com/gathr/service/internal/media"
)

func newUploadCmd(a *app) *cobra.Command {
	var entityID, mimeType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local image as an entity profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[0]))
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer f.Close()

			ctx, cancel := a.opContext(cmd)
			defer cancel()

			url, err := a.svc.UploadImage(ctx, f, mimeType, entityID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&entityID, "entity", "", "owner entity id, e.g. USR#alice123")
	cmd.Flags().StringVar(&mimeType, "mime", "", "image MIME type (default: from file extension)")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete a profile picture by the URL returned from upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.opContext(cmd)
			defer cancel()

			if err := a.svc.DeleteImage(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [bucket]",
		Short: "List the objects of a bucket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := a.cfg.StorageBucket
			if len(args) == 1 {
				bucket = args[0]
			}

			ctx, cancel := a.opContext(cmd)
			defer cancel()

			it := a.svc.ListBucket(ctx, bucket)
			defer it.Close()

			out := cmd.OutOrStdout()
			for it.Next() {
				obj := it.Object()
				fmt.Fprintf(out, " -> %s  (size = %d KB)\n", obj.Key, obj.SizeBytes/1024)
			}
			return it.Err()
		},
	}
}

func newBucketsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List the buckets visible to the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.opContext(cmd)
			defer cancel()

			buckets, err := a.svc.ListBuckets(ctx)
			if err != nil {
				return err
			}
			for _, b := range buckets {
				fmt.Fprintf(cmd.OutOrStdout(), " - %s\n", b.Name)
			}
			return nil
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <folder>",
		Short: "Create an empty folder marker in the media bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.opContext(cmd)
			defer cancel()

			return a.svc.CreateFolder(ctx, a.cfg.StorageBucket, args[0])
		},
	}
}

func newKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "key <entity-id | url>",
		Short: "Print the storage key for an entity id or an issued URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := media.ProfileKey(args[0])
			if err != nil {
				var urlErr error
				if key, urlErr = a.svc.KeyFromURL(args[0]); urlErr != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the entity types that can own media and their folders",
		Args:  cobra.NoArgs,
		// Needs no storage backend.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range entity.Types() {
				folder, ok := media.Folder(t)
				if !ok {
					return fmt.Errorf("entity type %q has no media folder", t)
				}
				fmt.Fprintf(cmd.OutOrStdout(), " - %s  %s/\n", t, folder)
			}
			return nil
		},
	}
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
