// Bulk-loads the question catalog from a JSON file.
//
// The server exposes POST /api/questions/import for incremental batches;
// this script is for first deployment, when the whole bank is loaded at
// once without going through the API.
//
// Usage: go run scripts/import_questions.go -file questions.json [-config ./config]
package main

import (
	"edutheo_backend/internal/config"
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/repository"
	"edutheo_backend/pkg/database"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
)

func main() {
	configPath := flag.String("config", "./config", "directory containing config.yaml")
	file := flag.String("file", "questions.json", "JSON file with an array of questions")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}

	repo := repository.NewQuestionRepository(db)
	created, skipped := 0, 0
	for i := range questions {
		q := &questions[i]
		if _, err := repo.FindByQuestionID(q.QuestionID); err == nil {
			skipped++
			continue
		}
		// The key is matched against the options case-insensitively but
		// stored as given, so the catalog round-trips verbatim.
		q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		if len(q.CorrectAnswer) != 1 {
			log.Printf("skipping %s: bad correct_answer %q", q.QuestionID, q.CorrectAnswer)
			skipped++
			continue
		}
		q.IsActive = true
		if err := repo.Create(q); err != nil {
			log.Printf("skipping %s: %v", q.QuestionID, err)
			skipped++
			continue
		}
		created++
	}

	log.Printf("import finished: %d created, %d skipped", created, skipped)
}
