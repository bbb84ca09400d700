package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPaperNotFound    = errors.New("paper not found")
	ErrSubtopicNotFound = errors.New("subtopic not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidReminder  = errors.New("invalid reminder offset")
)

// Enums and types
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleStudent UserRole = "student"
)

// ReminderOffset tags a task with when its reminder should fire relative
// to the due date.
type ReminderOffset string

const (
	ReminderAtTime       ReminderOffset = "at_time"
	ReminderFifteenMin   ReminderOffset = "15_min_before"
	ReminderOneHour      ReminderOffset = "1_hour_before"
	ReminderOneDayBefore ReminderOffset = "1_day_before"
)

// ValidReminderOffset reports whether r is one of the known offsets.
func ValidReminderOffset(r ReminderOffset) bool {
	switch r {
	case ReminderAtTime, ReminderFifteenMin, ReminderOneHour, ReminderOneDayBefore:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" db:"deleted_at"`
}

// Task is the only leaf of the study tree that users mutate. IDs are
// client-generated UUIDs so that tasks created offline on two devices can
// never collide.
type Task struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Completed bool           `json:"completed"`
	DueDate   string         `json:"dueDate,omitempty"` // ISO date or date-time
	Reminder  ReminderOffset `json:"reminder,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Subtopic groups tasks under a unit.
type Subtopic struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Tasks []Task `json:"tasks"`
}

// Unit groups subtopics under a subject.
type Unit struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Subtopics []Subtopic `json:"subtopics"`
}

// Subject is a top-level branch of the study tree. Subjects, units and
// subtopics form a static catalog: they are never created, renamed or
// deleted at runtime, only their task lists change.
type Subject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Units []Unit `json:"units"`
}

// Tombstone records that a task was deleted, so a merge can tell deletion
// apart from a task the other side simply never had.
type Tombstone struct {
	TaskID    string    `json:"taskId"`
	DeletedAt time.Time `json:"deletedAt"`
}

// Snapshot is the full per-user study tree plus deletion tombstones. One
// snapshot is stored per user, locally and remotely, as a single document.
type Snapshot struct {
	Subjects   []Subject   `json:"subjects"`
	Tombstones []Tombstone `json:"tombstones,omitempty"`
}

// Paper represents past-paper metadata in the shared repository.
type Paper struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	SubjectID   string     `json:"subject_id" db:"subject_id"`
	Year        int        `json:"year" db:"year"`
	Session     string     `json:"session" db:"session"`
	PaperNumber int        `json:"paper_number" db:"paper_number"`
	Title       string     `json:"title" db:"title"`
	DownloadURL string     `json:"download_url" db:"download_url"`
	UploadedBy  *uuid.UUID `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" db:"deleted_at"`
}

// NewTask creates a task with a fresh UUID and the given creation time.
func NewTask(text string, createdAt time.Time) Task {
	return Task{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: createdAt.UTC(),
	}
}

// Clone returns a deep copy of the snapshot. The merge engine treats its
// inputs as immutable, so every structural reuse goes through Clone.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	out := &Snapshot{
		Subjects: make([]Subject, len(s.Subjects)),
	}

	for i, subj := range s.Subjects {
		cs := subj
		cs.Units = make([]Unit, len(subj.Units))
		for j, unit := range subj.Units {
			cu := unit
			cu.Subtopics = make([]Subtopic, len(unit.Subtopics))
			for k, st := range unit.Subtopics {
				cst := st
				if st.Tasks != nil {
					cst.Tasks = make([]Task, len(st.Tasks))
					copy(cst.Tasks, st.Tasks)
				}
				cu.Subtopics[k] = cst
			}
			cs.Units[j] = cu
		}
		out.Subjects[i] = cs
	}

	if len(s.Tombstones) > 0 {
		out.Tombstones = append([]Tombstone(nil), s.Tombstones...)
	}

	return out
}

// FindSubtopic returns the subtopic with the given ID, or nil.
func (s *Snapshot) FindSubtopic(subtopicID string) *Subtopic {
	for i := range s.Subjects {
		for j := range s.Subjects[i].Units {
			for k := range s.Subjects[i].Units[j].Subtopics {
				st := &s.Subjects[i].Units[j].Subtopics[k]
				if st.ID == subtopicID {
					return st
				}
			}
		}
	}
	return nil
}

// FindTask returns the task with the given ID and its subtopic, or an error.
func (s *Snapshot) FindTask(taskID string) (*Subtopic, *Task, error) {
	for i := range s.Subjects {
		for j := range s.Subjects[i].Units {
			for k := range s.Subjects[i].Units[j].Subtopics {
				st := &s.Subjects[i].Units[j].Subtopics[k]
				for t := range st.Tasks {
					if st.Tasks[t].ID == taskID {
						return st, &st.Tasks[t], nil
					}
				}
			}
		}
	}
	return nil, nil, ErrTaskNotFound
}

// AddTask appends a task to the subtopic's task list. Tasks are only ever
// appended, never inserted mid-list.
func (s *Snapshot) AddTask(subtopicID string, task Task) error {
	st := s.FindSubtopic(subtopicID)
	if st == nil {
		return ErrSubtopicNotFound
	}
	st.Tasks = append(st.Tasks, task)
	return nil
}

// ToggleTask flips the completion flag in place and refreshes CreatedAt so
// the edit wins last-write-wins resolution against an older copy.
func (s *Snapshot) ToggleTask(taskID string, now time.Time) error {
	_, task, err := s.FindTask(taskID)
	if err != nil {
		return err
	}
	task.Completed = !task.Completed
	task.CreatedAt = now.UTC()
	return nil
}

// RemoveTask deletes a task by ID and records a tombstone so the deletion
// survives a merge with a copy that still carries the task.
func (s *Snapshot) RemoveTask(taskID string, now time.Time) error {
	st, _, err := s.FindTask(taskID)
	if err != nil {
		return err
	}

	tasks := st.Tasks[:0]
	for _, t := range st.Tasks {
		if t.ID != taskID {
			tasks = append(tasks, t)
		}
	}
	st.Tasks = tasks

	s.Tombstones = append(s.Tombstones, Tombstone{TaskID: taskID, DeletedAt: now.UTC()})
	return nil
}

// TaskCount returns the number of tasks across the whole snapshot.
func (s *Snapshot) TaskCount() int {
	count := 0
	for i := range s.Subjects {
		for j := range s.Subjects[i].Units {
			for k := range s.Subjects[i].Units[j].Subtopics {
				count += len(s.Subjects[i].Units[j].Subtopics[k].Tasks)
			}
		}
	}
	return count
}
