// Package models defines the request and response bodies of the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"142" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version used to build"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Process models
type ProcessData struct {
	Name           string    `json:"name" example:"db" doc:"Process name"`
	State          string    `json:"state" enum:"running,failed,restarting,stopped" example:"running" doc:"Supervision state"`
	Policy         string    `json:"policy" enum:"permanent,transient,temporary" example:"permanent" doc:"Restart policy"`
	Dependencies   []string  `json:"dependencies" doc:"Processes this process depends on"`
	Restarts       int       `json:"restarts" example:"2" doc:"Restarts since registration"`
	RecentRestarts int       `json:"recent_restarts" example:"1" doc:"Restarts inside the current budget window"`
	Incarnation    uint64    `json:"incarnation" example:"3" doc:"Incarnation number of the live instance"`
	InstanceID     string    `json:"instance_id,omitempty" example:"9f1c2d7e-5b8a-4c3e-9a41-0d6f2b7c8e10" doc:"Unique id of the live instance"`
	StartedAt      time.Time `json:"started_at,omitempty" doc:"When the live instance was spawned"`
	LastError      string    `json:"last_error,omitempty" example:"exit status 1" doc:"Most recent exit cause"`
}

type ProcessListData struct {
	Processes []ProcessData `json:"processes" doc:"Supervised processes in registration order"`
	Count     int           `json:"count" example:"3" doc:"Number of processes"`
}

type ProcessListResponse struct {
	Body ProcessListData
}

type ProcessRequest struct {
	Name string `path:"name" minLength:"1" example:"db" doc:"Process name"`
}

type ProcessResponse struct {
	Body ProcessData
}

// Log models
type LogsRequest struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of entries, newest last"`
}

type LogEntryData struct {
	Timestamp  time.Time      `json:"timestamp" doc:"Log time"`
	Level      string         `json:"level" example:"warn" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Logging module"`
	Message    string         `json:"message" example:"Process failed" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Recent log entries"`
	Count   int            `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
