// Package backend prepares and launches the job for a single derivation.
//
// Every derivation owns a directory in the work root named after its ID:
//
//	<root>/<id>/
//	├── .lock        cross-process lock held while the job is prepared and runs
//	├── out          whatever the script writes to ${out} (file or directory)
//	└── run/         working directory of the job
//	    ├── .cmd       the fully assembled command
//	    ├── .stdout    captured standard output
//	    ├── .stderr    captured standard error
//	    ├── .finished  written only after a zero exit status
//	    └── <dep-id>   symlink to <root>/<dep-id>/out, one per dependency
//
// The cache check is the creation of run/. If it already exists and holds
// .finished the derivation is satisfied without spawning anything. If it
// exists without the marker, a previous attempt did not complete and the job
// runs again.
//
// Jobs are handed to an HPCRuntime, which decides where the command runs,
// after the command has been passed through a ContainerRuntime, which decides
// what it runs inside.
package backend
