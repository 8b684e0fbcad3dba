package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/backup"
	"github.com/zulandar/mentortrack/internal/config"
	"golang.org/x/term"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore backup archives",
	}

	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var (
		configPath string
		kind       string
		upload     bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new backup archive",
		Long: `Writes a zip archive into the configured backup directory.

Kinds:
  full  everything under backup.root except VCS, build output and logs
  data  the database and uploaded images
  code  source and static assets without uploads`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupCreate(cmd, configPath, kind, upload)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&kind, "kind", "k", string(backup.KindFull), "archive kind: full, data or code")
	cmd.Flags().BoolVar(&upload, "upload", false, "copy the archive to the configured S3 bucket")
	return cmd
}

func runBackupCreate(cmd *cobra.Command, configPath, kindName string, upload bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	kind, err := backup.ParseKind(kindName)
	if err != nil {
		return err
	}
	if upload && !cfg.Backup.S3.Enabled() {
		return errors.New("--upload requires backup.s3.bucket in the config")
	}

	archive, manifest, err := backup.Create(backup.Options{
		Kind:      kind,
		Root:      cfg.Backup.Root,
		Dir:       cfg.Backup.Dir,
		DataPaths: cfg.Backup.DataPaths,
		CodePaths: cfg.Backup.CodePaths,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s (%d files, %s)\n", archive.Path, manifest.Files, formatSize(archive.Size))

	if upload {
		uploader, err := backup.NewS3Uploader(cmd.Context(), cfg.Backup.S3)
		if err != nil {
			return err
		}
		key, err := uploader.Upload(cmd.Context(), archive.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Uploaded to s3://%s/%s\n", cfg.Backup.S3.Bucket, key)
	}
	return nil
}

func newBackupListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backup archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupList(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runBackupList(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	archives, err := backup.List(cfg.Backup.Dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(archives) == 0 {
		fmt.Fprintf(out, "No backups in %s\n", cfg.Backup.Dir)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
	for _, a := range archives {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, formatSize(a.Size), a.ModTime.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func newBackupRestoreCmd() *cobra.Command {
	var (
		configPath string
		dest       string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Extract a backup archive over the installation",
		Long:  "Extracts every file in the archive into --dest (default backup.root), overwriting existing files.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupRestore(cmd, configPath, args[0], dest, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&dest, "dest", "", "directory to restore into (default from config)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runBackupRestore(cmd *cobra.Command, configPath, archivePath, dest string, skipConfirm bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dest == "" {
		dest = cfg.Backup.Root
	}

	manifest, err := backup.ReadManifest(archivePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !skipConfirm {
		if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return errors.New("stdin is not a terminal: pass --yes to restore without confirmation")
		}
		if !confirmRestore(cmd, manifest, dest) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	n, err := backup.Restore(archivePath, dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Restored %d files into %s\n", n, dest)
	return nil
}

func confirmRestore(cmd *cobra.Command, m *backup.Manifest, dest string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Restore %s backup from %s (%d files) into %q?\n",
		m.Kind, m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Files, dest)
	fmt.Fprintln(out, "Existing files with the same path will be overwritten.")
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n < mb {
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(n)/mb)
}
