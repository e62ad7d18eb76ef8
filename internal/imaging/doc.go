// Package imaging implements letterbox detection and removal for raster
// images and JPEG XL files. The traversal core only sees the Collaborator
// interface; Processor is the concrete implementation used by the CLI and
// FakeCollaborator records calls in tests.
package imaging
