package main

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"planner/internal/database"
	"planner/internal/domain"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "planner.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM action_tokens")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM schedule_items")
	db.Exec("DELETE FROM scheduling_configurations")
	db.Exec("DELETE FROM working_preferences")
	db.Exec("DELETE FROM owners")

	// ================== OWNER ==================
	hash, _ := bcrypt.GenerateFromPassword([]byte("owner123"), bcrypt.DefaultCost)
	owner := domain.Owner{
		Email:        "demo@planner.local",
		PasswordHash: string(hash),
		Name:         "Demo Owner",
	}
	if err := db.Create(&owner).Error; err != nil {
		log.Fatal("create owner:", err)
	}
	log.Println("Owner created: demo@planner.local / owner123")

	// ================== PREFERENCES ==================
	prefs := domain.WorkingPreferences{
		OwnerID:      owner.ID,
		TimeZone:     "Europe/Berlin",
		WakeTime:     "08:00",
		SleepTime:    "20:00",
		BlockedDays:  mustJSON([]string{"saturday", "sunday"}),
		MeetingHours: mustJSON(domain.HoursJSON{Start: "09:00", End: "17:00"}),
		DayOverrides: mustJSON(map[string]domain.HoursJSON{
			"friday": {Start: "08:00", End: "14:00"},
		}),
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&prefs).Error; err != nil {
		log.Fatal("create preferences:", err)
	}

	// ================== LINKS ==================
	links := []domain.SchedulingConfiguration{
		{
			OwnerID:             owner.ID,
			LinkID:              "intro",
			Title:               "Intro call",
			Description:         "A short first conversation.",
			BufferAfterMinutes:  10,
			HorizonDays:         30,
			DailyCap:            4,
			CalendarProvider:    domain.CalendarProviderNone,
			Active:              true,
		},
		{
			OwnerID:             owner.ID,
			LinkID:              "deep-dive",
			Title:               "Deep dive",
			BufferBeforeMinutes: 15,
			BufferAfterMinutes:  15,
			HorizonDays:         60,
			CalendarProvider:    domain.CalendarProviderNone,
			Active:              true,
		},
	}
	durations := [][]int{{15, 30}, {60, 90}}
	for i := range links {
		if err := links[i].SetDurations(durations[i]); err != nil {
			log.Fatal(err)
		}
		if err := db.Create(&links[i]).Error; err != nil {
			log.Fatal("create link:", err)
		}
		log.Printf("Link created: /api/v1/links/%s", links[i].LinkID)
	}

	// ================== SCHEDULE ==================
	loc, err := time.LoadLocation(prefs.TimeZone)
	if err != nil {
		log.Fatal(err)
	}
	day := nextWeekday(time.Now().In(loc), time.Tuesday)
	at := func(h, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
	}
	items := []domain.ScheduleItem{
		{OwnerID: owner.ID, Kind: domain.ScheduleItemEvent, Title: "Team standup", StartTime: at(9, 30), EndTime: at(10, 0), Blocking: true},
		{OwnerID: owner.ID, Kind: domain.ScheduleItemTask, Title: "Write report", StartTime: at(13, 0), EndTime: at(15, 0)},
		{OwnerID: owner.ID, Kind: domain.ScheduleItemHabit, Title: "Lunch walk", StartTime: at(12, 0), EndTime: at(12, 30)},
	}
	if err := db.Create(&items).Error; err != nil {
		log.Fatal("create schedule items:", err)
	}

	booking := domain.Booking{
		ConfigurationID: links[0].ID,
		InviteeName:     "Sample Invitee",
		InviteeEmail:    "invitee@example.com",
		InviteeTimeZone: "Europe/London",
		StartTime:       at(11, 0).UTC(),
		EndTime:         at(11, 30).UTC(),
		Status:          domain.BookingScheduled,
	}
	if err := db.Create(&booking).Error; err != nil {
		log.Fatal("create booking:", err)
	}

	log.Println("Seed completed successfully!")
	log.Printf("   Owner: 1, Links: %d, Schedule items: %d, Bookings: 1", len(links), len(items))
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		log.Fatal(err)
	}
	return datatypes.JSON(b)
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	d := from.AddDate(0, 0, 1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
