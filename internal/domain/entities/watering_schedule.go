package entities

import "time"

// WateringSchedule is the single watering plan of a plant
type WateringSchedule struct {
	ID            int64      `json:"id" db:"id"`
	PlantID       int64      `json:"plant_id" db:"plant_id"`
	FrequencyDays int        `json:"frequency_days" db:"frequency_days"`
	LastWatered   *time.Time `json:"last_watered,omitempty" db:"last_watered"`
	NextWatering  time.Time  `json:"next_watering" db:"next_watering"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
