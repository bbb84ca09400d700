// Package merge reconciles two copies of a user's study snapshot. It is
// pure: no I/O, no clock reads, and neither input is mutated.
package merge

import (
	"github.com/studyflow/core/internal/domain/entities"
)

// Merge reconciles local against remote and returns the merged snapshot.
//
// Remote is the authoritative scaffold: the result starts from a deep copy
// of it, so positions of shared subjects, units, subtopics and tasks follow
// the remote ordering. Anything that exists only locally is appended.
// Shared tasks resolve by last-write-wins on CreatedAt; an equal timestamp
// keeps the remote copy.
//
// Deletions are carried by tombstones. A tombstone dated at or after a
// task's CreatedAt removes the task on both sides; a task edited after its
// tombstone resurrects and the tombstone is dropped. A task merely missing
// from one side, with no tombstone, is never treated as deleted.
func Merge(local, remote *entities.Snapshot) *entities.Snapshot {
	if remote == nil {
		return local.Clone()
	}
	if local == nil {
		return remote.Clone()
	}

	out := remote.Clone()

	mergeSubjects(out, local)
	tombstones := mergeTombstones(remote.Tombstones, local.Tombstones)
	out.Tombstones = applyTombstones(out, tombstones)

	return out
}

func mergeSubjects(base *entities.Snapshot, local *entities.Snapshot) {
	index := make(map[string]int, len(base.Subjects))
	for i, subj := range base.Subjects {
		index[subj.ID] = i
	}

	for _, subj := range local.Subjects {
		i, ok := index[subj.ID]
		if !ok {
			// Defensive only: the catalog is static, but a subject the
			// remote has never seen must not be lost.
			base.Subjects = append(base.Subjects, cloneSubject(subj))
			continue
		}
		mergeUnits(&base.Subjects[i], subj)
	}
}

func mergeUnits(base *entities.Subject, local entities.Subject) {
	index := make(map[string]int, len(base.Units))
	for i, unit := range base.Units {
		index[unit.ID] = i
	}

	for _, unit := range local.Units {
		i, ok := index[unit.ID]
		if !ok {
			base.Units = append(base.Units, cloneUnit(unit))
			continue
		}
		mergeSubtopics(&base.Units[i], unit)
	}
}

func mergeSubtopics(base *entities.Unit, local entities.Unit) {
	index := make(map[string]int, len(base.Subtopics))
	for i, st := range base.Subtopics {
		index[st.ID] = i
	}

	for _, st := range local.Subtopics {
		i, ok := index[st.ID]
		if !ok {
			base.Subtopics = append(base.Subtopics, cloneSubtopic(st))
			continue
		}
		mergeTasks(&base.Subtopics[i], st)
	}
}

// mergeTasks resolves a shared subtopic's task lists. Base positions are
// preserved for tasks both sides know; local-only tasks are appended in
// local order.
func mergeTasks(base *entities.Subtopic, local entities.Subtopic) {
	index := make(map[string]int, len(base.Tasks))
	for i, t := range base.Tasks {
		index[t.ID] = i
	}

	for _, t := range local.Tasks {
		i, ok := index[t.ID]
		if !ok {
			base.Tasks = append(base.Tasks, t)
			continue
		}
		// Strictly later local edit wins; a tie keeps the remote copy.
		if t.CreatedAt.After(base.Tasks[i].CreatedAt) {
			base.Tasks[i] = t
		}
	}
}

// mergeTombstones unions the two tombstone sets, keeping the newest
// DeletedAt per task. Remote tombstones keep their order; local-only ones
// are appended in local order.
func mergeTombstones(remote, local []entities.Tombstone) []entities.Tombstone {
	merged := append([]entities.Tombstone(nil), remote...)
	index := make(map[string]int, len(merged))
	for i, ts := range merged {
		index[ts.TaskID] = i
	}

	for _, ts := range local {
		i, ok := index[ts.TaskID]
		if !ok {
			index[ts.TaskID] = len(merged)
			merged = append(merged, ts)
			continue
		}
		if ts.DeletedAt.After(merged[i].DeletedAt) {
			merged[i].DeletedAt = ts.DeletedAt
		}
	}

	return merged
}

// applyTombstones removes dead tasks from the snapshot and returns the
// tombstones that remain in force. A task created after its tombstone
// survives and retires the tombstone.
func applyTombstones(s *entities.Snapshot, tombstones []entities.Tombstone) []entities.Tombstone {
	if len(tombstones) == 0 {
		return nil
	}

	dead := make(map[string]int, len(tombstones))
	for i, ts := range tombstones {
		dead[ts.TaskID] = i
	}

	retired := make(map[string]bool)

	for i := range s.Subjects {
		for j := range s.Subjects[i].Units {
			for k := range s.Subjects[i].Units[j].Subtopics {
				st := &s.Subjects[i].Units[j].Subtopics[k]
				kept := st.Tasks[:0]
				for _, t := range st.Tasks {
					if ti, ok := dead[t.ID]; ok {
						if !t.CreatedAt.After(tombstones[ti].DeletedAt) {
							continue
						}
						retired[t.ID] = true
					}
					kept = append(kept, t)
				}
				st.Tasks = kept
			}
		}
	}

	remaining := make([]entities.Tombstone, 0, len(tombstones))
	for _, ts := range tombstones {
		if !retired[ts.TaskID] {
			remaining = append(remaining, ts)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	return remaining
}

func cloneSubject(s entities.Subject) entities.Subject {
	out := s
	out.Units = make([]entities.Unit, len(s.Units))
	for i, u := range s.Units {
		out.Units[i] = cloneUnit(u)
	}
	return out
}

func cloneUnit(u entities.Unit) entities.Unit {
	out := u
	out.Subtopics = make([]entities.Subtopic, len(u.Subtopics))
	for i, st := range u.Subtopics {
		out.Subtopics[i] = cloneSubtopic(st)
	}
	return out
}

func cloneSubtopic(st entities.Subtopic) entities.Subtopic {
	out := st
	if st.Tasks != nil {
		out.Tasks = make([]entities.Task, len(st.Tasks))
		copy(out.Tasks, st.Tasks)
	}
	return out
}
