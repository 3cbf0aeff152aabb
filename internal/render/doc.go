// Package render turns Helm charts into flat Kubernetes manifest text.
//
// The pipeline embeds the rendered CNI manifest inside the machine config so
// it is applied at first boot, before any API server exists. Rendering is
// therefore purely local: chart plus values in, manifest bytes out, no
// cluster connection involved.
package render
