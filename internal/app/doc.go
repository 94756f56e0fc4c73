// Package app assembles a ready-to-use job.App from configuration: the
// function registry with its default functions, the configured datastore,
// the URL fetcher and the job output cache.
package app
