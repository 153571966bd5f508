package repository

import (
	"fmt"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"

	"gorm.io/gorm"
)

// Models lists every table owned by the trust & safety core.
func Models() []interface{} {
	return []interface{}{
		&conversation.Room{},
		&message.Message{},
		&block.UserBlock{},
		&block.Suppression{},
		&report.Report{},
		&moderation.LogEntry{},
	}
}

// InitSchema runs the Gorm auto-migration and adds the check constraints
// that keep enum columns closed.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	// We use 'DO $$ BEGIN ... END $$' blocks so re-running is harmless.
	checks := []string{
		`DO $$ BEGIN
			ALTER TABLE chat_rooms ADD CONSTRAINT chk_room_status
				CHECK (status IN ('active', 'muted', 'blocked', 'reported', 'closed'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE chat_rooms ADD CONSTRAINT chk_room_party_order
				CHECK (party_a::text < party_b::text);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE chat_messages ADD CONSTRAINT chk_message_type
				CHECK (type IN ('text', 'image', 'file', 'voice'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE chat_reports ADD CONSTRAINT chk_report_status
				CHECK (status IN ('pending', 'investigating', 'resolved', 'dismissed'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE user_suppressions ADD CONSTRAINT chk_suppression_kind
				CHECK (kind IN ('none', 'mute', 'ban'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE moderation_logs ADD CONSTRAINT chk_moderation_action
				CHECK (action IN ('chat_warning', 'chat_mute', 'chat_close', 'message_delete', 'message_hide',
					'user_warn', 'user_mute', 'user_ban', 'user_unban'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE moderation_logs ADD CONSTRAINT chk_appeal_status
				CHECK (appeal_status IN ('none', 'pending', 'upheld', 'overturned'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
	}

	for _, stmt := range checks {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add constraint: %w", err)
		}
	}
	return nil
}

// DropSchema removes every core table. Used by the migrate CLI's reset.
func DropSchema(db *gorm.DB) error {
	return db.Migrator().DropTable(Models()...)
}
