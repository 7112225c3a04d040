package engine

// Priority is the second component of an event's sort key. Lower values
// execute first among events scheduled for the same Time. The mapping below
// is the normative table from spec.md §6, kept as named constants the way
// the teacher keeps EventTypePriority (sim/cluster/types.go) as a lookup
// table rather than scattering magic numbers across event constructors.
type Priority int

const (
	PriorityNow                       Priority = -1
	PriorityResetStats                Priority = 0
	PriorityAnimateConveyor           Priority = 0
	PriorityShiftCalendarStart        Priority = 1
	PriorityOutUnblocked              Priority = 2
	PriorityUpdateConveyor            Priority = 2
	PriorityShift                     Priority = 3
	PriorityCreateDemand              Priority = 3
	PriorityStartNewBatch             Priority = 4
	PriorityTaktCompleteUnblocked     Priority = 4
	PriorityDisruptionBeginProcessing Priority = 4
	PriorityBreak                     Priority = 4
	PriorityDisruptionBegin           Priority = 5
	PriorityOut                       Priority = 5
	PriorityCreateEntity              Priority = 5
	PrioritySetup                     Priority = 5
	PriorityDisassembly               Priority = 5
	PriorityAssembly                  Priority = 5
	PriorityConveyorOpen              Priority = 6
	PriorityRequestResources          Priority = 6
	PriorityResourceReady             Priority = 6
	PriorityDisruptionEnd             Priority = 6
	PriorityTaktComplete              Priority = 7
	PriorityEntryTimeout              Priority = 7
	PriorityTriggerSynchronizedExits  Priority = 7
	PriorityTimeCallback              Priority = 8
)

// EventKind names the concrete event, used for breakpoint filtering
// (spec.md §6) and log lines. Kept as a plain string type, matching the
// teacher's EventType (sim/cluster/types.go), so nodes/ and logic/ can
// define their own kinds without engine needing to know about them.
type EventKind string

const (
	KindResetStats                EventKind = "ResetStats"
	KindAnimateConveyor           EventKind = "AnimateConveyor"
	KindShiftCalendarStart        EventKind = "ShiftCalendarStart"
	KindOutUnblocked              EventKind = "OutUnblocked"
	KindUpdateConveyor            EventKind = "UpdateConveyor"
	KindShift                     EventKind = "Shift"
	KindCreateDemand              EventKind = "CreateDemand"
	KindStartNewBatch             EventKind = "StartNewBatch"
	KindTaktCompleteUnblocked     EventKind = "TaktCompleteUnblocked"
	KindDisruptionBeginProcessing EventKind = "DisruptionBeginProcessing"
	KindBreak                     EventKind = "Break"
	KindDisruptionBegin           EventKind = "DisruptionBegin"
	KindOut                       EventKind = "Out"
	KindCreateEntity              EventKind = "CreateEntity"
	KindSetup                     EventKind = "Setup"
	KindDisassembly               EventKind = "Disassembly"
	KindAssembly                  EventKind = "Assembly"
	KindConveyorOpen              EventKind = "ConveyorOpen"
	KindRequestResources          EventKind = "RequestResources"
	KindResourceReady             EventKind = "ResourceReady"
	KindDisruptionEnd             EventKind = "DisruptionEnd"
	KindTaktComplete              EventKind = "TaktComplete"
	KindEntryTimeout              EventKind = "EntryTimeout"
	KindTriggerSynchronizedExits  EventKind = "TriggerSynchronizedExits"
	KindTimeCallback              EventKind = "TimeCallback"
	KindNow                       EventKind = "Now"
)
