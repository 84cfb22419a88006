package entity

import "github.com/google/uuid"

// VideoProcessingMessage is the inbound message from the video.processing queue.
type VideoProcessingMessage struct {
	JobID       uuid.UUID `json:"job_id"`
	UserID      string    `json:"user_id"`
	VideoKey    string    `json:"video_key"`
	FileSize    int64     `json:"file_size"`
	UserEmail   string    `json:"user_email"`
	Strategy    string    `json:"strategy,omitempty"`
	Threshold   int       `json:"threshold,omitempty"`
	MinDistance int       `json:"min_distance,omitempty"`
}

// VideoStatusMessage is the outbound message published to the video.status queue.
type VideoStatusMessage struct {
	JobID          uuid.UUID `json:"job_id"`
	UserID         string    `json:"user_id"`
	Status         JobStatus `json:"status"`
	VideoKey       string    `json:"video_key"`
	ZipKey         string    `json:"zip_key,omitempty"`
	Strategy       string    `json:"strategy,omitempty"`
	SceneThreshold float64   `json:"scene_threshold,omitempty"`
	FrameCount     int       `json:"frame_count,omitempty"`
	KeptCount      int       `json:"kept_count,omitempty"`
	RemovedCount   int       `json:"removed_count,omitempty"`
	Duration       float64   `json:"duration_seconds,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Attempt        int       `json:"attempt"`
	MaxAttempts    int       `json:"max_attempts"`
}
