// Package registry keeps one derived schema per top-level record type and
// enforces table-name uniqueness across everything registered.
package registry
