package database

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"gorm.io/gorm"
)

// BackupDatabase dumps the schema and data with mysqldump before a migration
// touches live tables. Flags come from DB_BACKUP_FLAGS so credentials can be
// supplied via a defaults file instead of the process arguments.
func BackupDatabase(outPath string) error {
	if _, err := exec.LookPath("mysqldump"); err != nil {
		return fmt.Errorf("mysqldump not found in PATH: %w", err)
	}

	args := strings.Fields(os.Getenv("DB_BACKUP_FLAGS"))
	args = append(args, os.Getenv("DB_NAME"))

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	cmd := exec.Command("mysqldump", args...)
	cmd.Stdout = outFile
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}

// RunMigrationsWithBackup auto-migrates the given models. When DB_BACKUP_PATH
// is set a dump is taken first; a failed backup logs a warning but does not
// block the migration, since development databases often lack mysqldump.
func RunMigrationsWithBackup(db *gorm.DB, models ...interface{}) error {
	if backupPath := os.Getenv("DB_BACKUP_PATH"); backupPath != "" {
		if err := BackupDatabase(backupPath); err != nil {
			log.Printf("pre-migration backup skipped: %v", err)
		}
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.AutoMigrate(models...); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
