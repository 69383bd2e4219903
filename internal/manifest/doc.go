// Package manifest reads batch manifests, YAML documents listing the
// downloads of one batch in order.
//
//	dir: /data/downloads
//	items:
//	  - url: https://example.com/a.bin
//	    dest: a.bin
//	  - url: https://example.com/archive/b.tar.gz
//
// A relative dest is resolved against dir, and dir itself against the
// manifest's own directory. An item without a dest is saved under the
// last element of its URL path.
package manifest
