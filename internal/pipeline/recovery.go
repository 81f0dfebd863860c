package pipeline

// EventToTask maps each completion event to the next task on the happy path.
// The terminal event has no entry.
var EventToTask = map[string]string{
	EventUnitCreated:              TaskPreprocessUnit,
	EventUnitPreprocessed:         TaskExtractPrimitives,
	EventPrimitivesExtracted:      TaskResolveAndDerive,
	EventClaimsDerived:            TaskRunNonLLMObservers,
	EventObserversNonLLMCompleted: TaskRunLLMObservers,
}

// RecoveryTask maps a unit's last durably observed event to the task that
// makes forward progress after a crash. It extends EventToTask with the
// mid-stage EventEntitiesResolved marker: resolve-stage rows are already
// committed at that point, so recovery skips the redundant derive step.
var RecoveryTask = map[string]string{
	EventUnitCreated:              TaskPreprocessUnit,
	EventUnitPreprocessed:         TaskExtractPrimitives,
	EventPrimitivesExtracted:      TaskResolveAndDerive,
	EventEntitiesResolved:         TaskRunNonLLMObservers,
	EventClaimsDerived:            TaskRunNonLLMObservers,
	EventObserversNonLLMCompleted: TaskRunLLMObservers,
}
