package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/shock-panel/database/models"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Migrate data from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run database migration",
	Long: `Run database migration from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  shock-panel migrate run --from-sqlite ./data/shock-panel.db --to-postgres "host=localhost user=postgres password=secret dbname=shockpanel port=5432"`,
	Run: func(cmd *cobra.Command, args []string) {
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")

		if err := runMigration(fromSQLite, toPostgres, skipConfirm); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

// migrateStats 迁移统计
type migrateStats struct {
	users    int
	shockers int
	skipped  int
	errors   []string
}

// runMigration 执行数据库迁移。会话不迁移，迁移后用户重新登录即可。
func runMigration(fromSQLite, toPostgres string, skipConfirm bool) error {
	if fromSQLite == "" || toPostgres == "" {
		return fmt.Errorf("both --from-sqlite and --to-postgres are required")
	}

	log.Printf("Migrating from sqlite to postgres")
	log.Printf("Source: %s", fromSQLite)
	log.Printf("Target: %s", maskDSN(toPostgres))

	sourceDB, err := openDatabase(sqlite.Open(fromSQLite))
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	sqlDB, _ := sourceDB.DB()
	defer sqlDB.Close()

	targetDB, err := openDatabase(postgres.Open(toPostgres))
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	sqlDB2, _ := targetDB.DB()
	defer sqlDB2.Close()

	if !skipConfirm {
		fmt.Println("\nWarning: This will migrate all data from source to target database.")
		fmt.Print("Do you want to continue? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Migration cancelled.")
			return nil
		}
	}

	log.Println("Migrating database schema...")
	if err := targetDB.AutoMigrate(&models.User{}, &models.Shocker{}, &models.Session{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	ctx := context.Background()
	stats := &migrateStats{}

	log.Println("Migrating users...")
	if err := migrateUsers(ctx, sourceDB, targetDB, stats); err != nil {
		return err
	}

	log.Println("Migrating shockers...")
	if err := migrateShockers(ctx, sourceDB, targetDB, stats); err != nil {
		return err
	}

	printMigrateStats(stats)

	if len(stats.errors) > 0 {
		return fmt.Errorf("migration completed with %d errors", len(stats.errors))
	}

	log.Println("Migration completed successfully!")
	return nil
}

// openDatabase 打开数据库连接
func openDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// migrateUsers 迁移用户数据。目标库已存在的用户名跳过。
func migrateUsers(ctx context.Context, sourceDB, targetDB *gorm.DB, stats *migrateStats) error {
	var users []models.User
	if err := sourceDB.WithContext(ctx).Find(&users).Error; err != nil {
		return err
	}

	for _, user := range users {
		var count int64
		if err := targetDB.WithContext(ctx).Model(&models.User{}).
			Where("id = ? OR username = ?", user.ID, user.Username).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			stats.skipped++
			continue
		}

		if err := targetDB.WithContext(ctx).Create(&user).Error; err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("failed to migrate user %d: %v", user.ID, err))
			continue
		}
		stats.users++
	}

	log.Printf("Migrated %d users (skipped: %d)", stats.users, stats.skipped)
	return nil
}

// migrateShockers 迁移设备数据
func migrateShockers(ctx context.Context, sourceDB, targetDB *gorm.DB, stats *migrateStats) error {
	var shockers []models.Shocker
	if err := sourceDB.WithContext(ctx).Find(&shockers).Error; err != nil {
		return err
	}

	for _, shocker := range shockers {
		var count int64
		if err := targetDB.WithContext(ctx).Model(&models.Shocker{}).
			Where("user_id = ? AND shocker_id = ?", shocker.UserID, shocker.ShockerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			stats.skipped++
			continue
		}

		if err := targetDB.WithContext(ctx).Create(&shocker).Error; err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("failed to migrate shocker %d: %v", shocker.ID, err))
			continue
		}
		stats.shockers++
	}

	log.Printf("Migrated %d shockers", stats.shockers)
	return nil
}

// maskDSN 隐藏敏感信息
func maskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:50] + "..."
	}
	return dsn
}

// printMigrateStats 打印迁移统计
func printMigrateStats(stats *migrateStats) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	fmt.Printf("Users migrated:     %d\n", stats.users)
	fmt.Printf("Shockers migrated:  %d\n", stats.shockers)
	fmt.Printf("Skipped records:    %d\n", stats.skipped)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
