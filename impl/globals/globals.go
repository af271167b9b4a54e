package globals

// DefaultWorkers is the number of images transferred concurrently if not
// otherwise configured
const DefaultWorkers = 10

// ArtifactExt is the file extension of a saved image
const ArtifactExt = ".tar"

// BundleName is the default name of the archive holding all saved images
const BundleName = "images.tgz"

// ReportName is the default name of the persisted run summary
const ReportName = "result.txt"
