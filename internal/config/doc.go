// The config package encapsulates configuration for the chunkdiff engine
// and command.
//
// All chunkdiff components keep their configuration and data within a
// dedicated base directory. When loading the configuration, the first and
// only argument is the path to the base directory rather than the path to
// the configuration file. The designated directory is expected to contain
// a file called 'config' made of "key value" lines corresponding to the C
// struct of this package; missing keys take the values of Default. Paths
// are derived from the base directory and exposed as methods of C.
package config
