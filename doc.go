// Package approvals implements the core of a requester/admin task approval
// service: identities and credentials, JWT sessions, the role policy, the
// task lifecycle, the admin directory, and real-time event fan-out.
//
// Task lifecycle:
//   - Tasks start pending and move to approved or rejected through
//     TaskStateMachine. A rejected task always carries a rejection reason and
//     any other status never does; the state machine owns that pairing.
//   - TaskService serializes mutations, persists through a TaskRepository and
//     publishes the post-mutation record to the Broadcaster.
//
// Sessions:
//   - TokenService issues HS256 tokens whose claims carry a subject type
//     (user or admin). ValidateFor rejects tokens minted for the other subject
//     type so requester tokens never reach admin endpoints and vice versa.
//   - Policy maps each Operation to the subject type and admin roles allowed
//     to run it.
//
// Events:
//   - Broadcaster delivers best-effort, at-most-once events to every live
//     subscription. Sessions that connect later get no backlog and are
//     expected to reload state on connect.
package approvals
