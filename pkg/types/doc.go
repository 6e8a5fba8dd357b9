// Package types defines the domain entities, mapping records, configuration,
// and standard error types shared by the opsync engine and its collaborators
// (Megaplan source client, OpenProject sink client, mapping store).
package types
