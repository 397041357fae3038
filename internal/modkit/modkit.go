// Package modkit builds API modules: shared deps, functional options and the mount plumbing every module embeds
package modkit
