/*
Package manager implements the command surface consumed by the external
chat module.

Operations cover the monitored-domain lists (ListDomains, AddDynamic,
RemoveDynamic, RemoveSubtree), dampening control (GetDampening,
ClearDampening), status queries (GetStatus), and one-shot resolution
(CheckOnce).

Domain names are validated against the standard label grammar, capped at
253 bytes, and lowercased before storage. Validation failures surface
verbatim to the caller; they never reach the observer. Static (boot-time)
domains are visible through every query but refuse removal.
*/
package manager
