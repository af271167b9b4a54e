/*
Airgap pulls a list of container images through a bounded pool of workers and
optionally saves each one to a tarball, bundles the tarballs into a single gzipped
tarball, and uploads the bundle and a run summary to cloud object storage, for
transfer into an air-gapped environment.

Usage:

	airgap [global flags] pull [flags]
	airgap version

Global flags:

	--log-level string
		Log level: debug, info, warn, or error. Defaults to 'error'.
	--log-file string
		Log to the specified file rather than the console.
	--config-file string
		A yaml file to load configuration from. Command line flags override the file.

Pull flags:

	--image-file string
		A file with one image ref per line. Blank lines and lines starting with '#'
		are skipped unless --keep-blank-lines is given.
	--workers int
		The number of images to transfer concurrently. Defaults to 10.
	--skip-existing
		Does not pull images that are already in the local store.
	--save
		Saves each image to <save-dir>/<ref with '/' replaced by '_'>.tar
	--save-dir string
		Defaults to 'harness-airgapped'.
	--backend string
		docker (the default), engine, or crane.
	--pull-timeout int
		Milliseconds allowed for each pull or save. Defaults to zero: no limit.
	--report string
		Writes the run summary to the specified file.
	--bundle string
		Bundles the saved tarballs into the specified gzipped tarball. Requires --save.
	--upload string
		Uploads the bundle and summary to gs://bucket/prefix or s3://bucket/prefix.
	--credentials string
		The credentials file for the upload.

For example, to pull and save everything in a list, bundle it, and upload it:

	airgap pull --image-file images.txt --skip-existing --save --bundle images.tgz\
	  --upload gs://smp-airgap-bundles --credentials key.json --report result.txt

The exit code is zero if the run completed, even if some images failed. The summary
shows the number of failures.
*/
package main
