package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/prepforge/prepforge-backend/internal/database"
	"github.com/prepforge/prepforge-backend/internal/logger"
)

type seedQuestion struct {
	objective      int
	text           string
	options        []string
	correctAnswers []int
	explanation    string
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding demo exam ===")

	slug := "demo-cloud-associate"

	var existing uuid.UUID
	err = pool.QueryRow(ctx, `SELECT id FROM exams WHERE slug = $1`, slug).Scan(&existing)
	if err == nil {
		fmt.Printf("Demo exam already present (%s), nothing to do\n", existing)
		return
	}

	examID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO exams (id, slug, title, vendor, description, passing_score,
			default_time_limit_seconds, question_count, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)`,
		examID, slug, "Demo Cloud Associate", "PrepForge",
		"A small sample exam for trying out the platform.",
		70.0, 1800, 9,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert exam")
	}

	objectiveTitles := []string{
		"Compute Fundamentals",
		"Networking Basics",
		"Storage and Databases",
	}
	objectiveIDs := make([]uuid.UUID, len(objectiveTitles))
	for i, title := range objectiveTitles {
		objectiveIDs[i] = uuid.New()
		_, err = pool.Exec(ctx,
			`INSERT INTO objectives (id, exam_id, title, weight) VALUES ($1, $2, $3, $4)`,
			objectiveIDs[i], examID, title, 1.0/float64(len(objectiveTitles)),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to insert objective")
		}
	}

	questions := []seedQuestion{
		{0, "Which unit of deployment does a container image produce at runtime?",
			[]string{"A virtual machine", "A container", "A hypervisor", "A kernel module"},
			[]int{1}, "An image is a template; running it creates a container."},
		{0, "Which two properties describe horizontal scaling? (Choose two.)",
			[]string{"Adding more instances", "Adding more CPU to one instance", "Improves fault tolerance", "Requires downtime"},
			[]int{0, 2}, "Horizontal scaling adds instances, which also spreads failure risk."},
		{0, "What does an autoscaling policy react to?",
			[]string{"Deployment color", "Observed load metrics", "DNS TTLs", "Disk formatting"},
			[]int{1}, "Policies scale capacity in response to measured load."},
		{1, "Which protocol underpins HTTPS?",
			[]string{"TLS", "FTP", "SMTP", "ICMP"},
			[]int{0}, "HTTPS is HTTP carried over TLS."},
		{1, "Which record type maps a hostname to an IPv4 address?",
			[]string{"MX", "CNAME", "A", "TXT"},
			[]int{2}, "A records resolve names to IPv4 addresses."},
		{1, "Which two components belong in a private subnet? (Choose two.)",
			[]string{"Public load balancer", "Application servers", "Databases", "CDN edge nodes"},
			[]int{1, 2}, "Workloads that never take direct internet traffic stay private."},
		{2, "Which storage class suits infrequently accessed backups?",
			[]string{"Hot tier", "Cold/archive tier", "Local NVMe", "tmpfs"},
			[]int{1}, "Archive tiers trade latency for cost on rarely read data."},
		{2, "What does a database read replica provide?",
			[]string{"Write scaling", "Read scaling", "Schema migration", "Encryption at rest"},
			[]int{1}, "Replicas serve reads; writes still flow to the primary."},
		{2, "Which property do ACID transactions guarantee?",
			[]string{"Eventual consistency", "Atomicity", "Replication lag", "Sharding"},
			[]int{1}, "The A in ACID is atomicity: all or nothing."},
	}

	for i, q := range questions {
		opts, _ := json.Marshal(q.options)
		_, err = pool.Exec(ctx,
			`INSERT INTO questions (id, exam_id, objective_id, text, options,
				correct_answers, explanation, order_num, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)`,
			uuid.New(), examID, objectiveIDs[q.objective], q.text, opts,
			q.correctAnswers, q.explanation, i+1,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to insert question")
		}
	}

	fmt.Printf("Seeded exam %s with %d objectives and %d questions\n",
		examID, len(objectiveIDs), len(questions))
}
