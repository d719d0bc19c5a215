// Package module runs auxiliary logic around every case.
//
// Modules are registered by name in a Registry and selected for a run by a
// module list file:
//
//	modules:
//	  - name: banner
//	  - name: monitor
//	    setting_file: monitor-lab2
//
// Each module declares a Phase. The Manager runs PRE modules before a case
// and POST modules after it, sequentially and in ascending priority. PARALLEL
// modules run on their own goroutines alongside the case body and are
// cancelled and joined by StopModule. There is no synchronization between a
// parallel module and the case body beyond that: both may use the resource
// pool and the reporter, which are safe for concurrent use, but a module
// must not assume anything about the case's progress.
package module
