// Package tracing provides hooks that observe a virtual clock.
//
// The hooks attach through instrumentation/hooking and react to the timer
// positions defined in the timing package. FireLogger prints timer activity,
// FireCounter keeps totals and FireRecorder stores every firing in a
// datarecording table.
package tracing
