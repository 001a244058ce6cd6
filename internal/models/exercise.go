package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyName is returned when an exercise or plan is submitted without a name.
var ErrEmptyName = errors.New("name is required")

// Entity is implemented by every persisted record.
type Entity interface {
	EntityID() uuid.UUID
}

// Modality is the equipment category of an exercise.
type Modality string

const (
	ModalityBarbell    Modality = "barbell"
	ModalityDumbbell   Modality = "dumbbell"
	ModalityMachine    Modality = "machine"
	ModalityCable      Modality = "cable"
	ModalityBodyweight Modality = "bodyweight"
	ModalityCardio     Modality = "cardio"
	ModalityClimb      Modality = "climb"
	ModalityOther      Modality = "other"
)

// Modalities lists every modality in display order.
var Modalities = []Modality{
	ModalityBarbell, ModalityDumbbell, ModalityMachine, ModalityCable,
	ModalityBodyweight, ModalityCardio, ModalityClimb, ModalityOther,
}

var modalityNames = map[Modality]string{
	ModalityBarbell:    "Barbell",
	ModalityDumbbell:   "Dumbbell",
	ModalityMachine:    "Machine",
	ModalityCable:      "Cable",
	ModalityBodyweight: "Bodyweight",
	ModalityCardio:     "Cardio",
	ModalityClimb:      "Climb",
	ModalityOther:      "Other",
}

// ParseModality maps a stored tag to a Modality. Unknown tags become ModalityOther.
func ParseModality(s string) Modality {
	m := Modality(s)
	if _, ok := modalityNames[m]; ok {
		return m
	}
	return ModalityOther
}

// DisplayName returns the human-readable label for the modality.
func (m Modality) DisplayName() string {
	if name, ok := modalityNames[m]; ok {
		return name
	}
	return modalityNames[ModalityOther]
}

// Exercise is an entry in the exercise library. Its name is the identity
// used when resolving exercises by name; the ID only links sets to it.
type Exercise struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	MuscleGroups []string  `json:"muscle_groups"`
	Modality     Modality  `json:"modality"`
	Notes        *string   `json:"notes,omitempty"`
	IsCustom     bool      `json:"is_custom"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewExercise returns an exercise with a fresh ID, modality "other" and no muscle groups.
func NewExercise(name string, now time.Time) *Exercise {
	return &Exercise{
		ID:           uuid.New(),
		Name:         name,
		MuscleGroups: []string{},
		Modality:     ModalityOther,
		CreatedAt:    now,
	}
}

func (e *Exercise) EntityID() uuid.UUID { return e.ID }
