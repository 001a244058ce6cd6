package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/spotter/internal/models"
	"github.com/claude/spotter/internal/storage"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Exercises []seedExercise `yaml:"exercises"`
}

type seedExercise struct {
	Name         string   `yaml:"name"`
	Modality     string   `yaml:"modality"`
	MuscleGroups []string `yaml:"muscle_groups"`
}

// Seed imports the default library from src when the gateway holds no
// exercises. A source that cannot be read or parsed is logged and skipped.
// It returns the number of exercises inserted.
func Seed(ctx context.Context, gw storage.Gateway, src io.Reader, now time.Time, log *slog.Logger) (int, error) {
	if gw.CountExercises() > 0 {
		return 0, nil
	}

	data, err := io.ReadAll(src)
	if err != nil {
		log.Warn("failed to read default exercises", "error", err)
		return 0, nil
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		log.Warn("failed to parse default exercises", "error", err)
		return 0, nil
	}

	n := 0
	for _, se := range file.Exercises {
		if se.Name == "" {
			continue
		}
		ex := models.NewExercise(se.Name, now)
		ex.Modality = models.ParseModality(se.Modality)
		if se.MuscleGroups != nil {
			ex.MuscleGroups = se.MuscleGroups
		}
		gw.Insert(ex)
		n++
	}

	if err := gw.Save(ctx); err != nil {
		gw.Rollback()
		return 0, fmt.Errorf("saving default exercises: %w", err)
	}
	log.Info("seeded default exercises", "count", n)
	return n, nil
}
