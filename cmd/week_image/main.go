package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/config"
	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/notify"
	"github.com/Freeeeeet/tutoring_hub/internal/render"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Рисует PNG недели в файл. Без -user используются демонстрационные сессии и база не нужна.
func main() {
	userID := flag.Int64("user", 0, "user id whose sessions are rendered")
	week := flag.String("week", "", "any day of the week, YYYY-MM-DD (default: current week)")
	out := flag.String("out", "week.png", "output file")
	flag.Parse()

	loc := time.UTC
	now := time.Now()

	var (
		sessions []*model.Session
		viewer   int64 = 1
		cfg      *config.Config
		err      error
	)

	if *userID != 0 {
		cfg, err = config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		loc = cfg.Timezone
	}

	day := now.In(loc)
	if *week != "" {
		day, err = time.ParseInLocation("2006-01-02", *week, loc)
		if err != nil {
			log.Fatalf("Invalid -week: %v", err)
		}
	}
	weekStart := render.WeekStart(day, loc)

	if *userID != 0 {
		viewer = *userID
		sessions, err = loadWeek(cfg, *userID, weekStart)
		if err != nil {
			log.Fatalf("Failed to load sessions: %v", err)
		}
	} else {
		sessions = demoSessions(weekStart)
	}

	imageData, err := render.WeekImage(weekStart, sessions, viewer, now, loc)
	if err != nil {
		log.Fatalf("Failed to render image: %v", err)
	}

	if err := os.WriteFile(*out, imageData, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}

	fmt.Printf("✅ Saved %s\n", *out)
	fmt.Printf("📅 Week: %s - %s\n", weekStart.Format("02.01.2006"), weekStart.AddDate(0, 0, 6).Format("02.01.2006"))
	fmt.Printf("📊 Sessions: %d\n", len(sessions))
}

func loadWeek(cfg *config.Config, userID int64, weekStart time.Time) ([]*model.Session, error) {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	logger := zap.NewNop()
	db := base.NewRepository(pool)
	userRepo := repository.NewUserRepository(db)

	sessions := service.NewSessionService(
		base.NewTxManager(pool),
		repository.NewSessionRepository(db),
		repository.NewAvailabilityRepository(db),
		userRepo,
		notify.NewLogNotifier(logger),
		cfg.Timezone,
		logger,
	)

	return sessions.Week(ctx, userID, weekStart)
}

func demoSessions(monday time.Time) []*model.Session {
	student := &model.User{ID: 1, FirstName: "Anna", LastName: "Petrova"}
	tutor := &model.User{ID: 2, FirstName: "Ivan", LastName: "Sidorov"}

	at := func(day, hour, minute int) time.Time {
		return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	session := func(id int64, subject string, start time.Time, length time.Duration, status model.SessionStatus) *model.Session {
		return &model.Session{
			ID: id, StudentID: student.ID, TutorID: tutor.ID, Subject: subject,
			StartTime: start, EndTime: start.Add(length), Status: status,
			Student: student, Tutor: tutor,
		}
	}

	return []*model.Session{
		session(1, "Mathematics", at(0, 9, 0), time.Hour, model.SessionStatusCompleted),
		session(2, "Physics", at(0, 14, 0), 90*time.Minute, model.SessionStatusConfirmed),
		session(3, "Mathematics", at(1, 10, 30), time.Hour, model.SessionStatusPending),
		session(4, "English", at(2, 16, 0), 45*time.Minute, model.SessionStatusConfirmed),
		session(5, "Chemistry", at(4, 11, 0), 2*time.Hour, model.SessionStatusPending),
	}
}
