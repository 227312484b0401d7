// Package kubestronaut defines the core types and collaborator interfaces shared
// by the scrape, enrichment and report stages.
package kubestronaut
