package main

import (
	"context"
	"log"

	"sentinal-safety/config"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/report"
	"sentinal-safety/internal/eligibility"
	"sentinal-safety/internal/repository"
	"sentinal-safety/internal/services"
	"sentinal-safety/pkg/database"

	"github.com/google/uuid"
)

// Fixed ids so a local client can log in as the seeded users.
var (
	devAlice = uuid.MustParse("00000000-0000-4000-8000-00000000a11c")
	devBob   = uuid.MustParse("00000000-0000-4000-8000-000000000b0b")
	devCarol = uuid.MustParse("00000000-0000-4000-8000-0000000ca201")
)

// runSeedDevelopment creates demo rooms, reports and sanctions through the
// services rather than raw inserts.
func runSeedDevelopment(cfg *config.Config) {
	log.Println("🌱 Seeding database (development mode)...")
	ctx := context.Background()

	store := repository.NewPostgresStore(database.DB)
	messages := services.NewMessageService(store, nil, cfg.Moderation, nil)
	rooms := services.NewConversationService(store, eligibility.Permissive(), messages, nil)
	moderation := services.NewModerationService(store, nil, cfg.Moderation, nil)
	reports := services.NewReportService(store, messages, moderation, nil, cfg.Moderation, nil)

	first, err := rooms.OpenConversation(ctx, services.OpenConversationInput{
		Initiator:      devAlice,
		OtherParty:     devBob,
		Context:        conversation.ContextMatrimonial,
		InitialMessage: "Hi Bob, nice to meet you!",
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	flagged, err := messages.Send(ctx, services.SendInput{
		RoomID:   first.Room.ID,
		SenderID: devBob,
		Content:  "Call me on +1 415 555 0100 or pay me at paypal.me/bob",
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	second, err := rooms.OpenConversation(ctx, services.OpenConversationInput{
		Initiator:      devCarol,
		OtherParty:     devBob,
		Context:        conversation.ContextJob,
		ContextRef:     "dev-application-1",
		InitialMessage: "Thanks for shortlisting me.",
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	filed, err := reports.FileReport(ctx, services.FileReportInput{
		RoomID:      first.Room.ID,
		MessageID:   uuid.NullUUID{UUID: flagged.ID, Valid: true},
		ReporterID:  devAlice,
		ReportedID:  devBob,
		Type:        report.TypeScam,
		Description: "Asked for money off-platform",
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("📊 Seed Summary:")
	log.Printf("   - Rooms: %s, %s", first.Room.ID, second.Room.ID)
	log.Printf("   - Flagged message: %s", flagged.ID)
	log.Printf("   - Report: %s", filed.Report.ID)
	log.Println("✅ Development seeding completed!")
}
