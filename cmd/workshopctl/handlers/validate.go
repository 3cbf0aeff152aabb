package handlers

import (
	"log"
)

// Validate loads the cluster declaration and reports whether it is usable.
func Validate(clusterFile string) error {
	spec, err := loadSpec(clusterFile)
	if err != nil {
		return err
	}

	log.Printf("Cluster %q is valid", spec.ClusterName)
	log.Printf("  endpoint:       %s", spec.Endpoint)
	log.Printf("  control planes: %d", len(spec.ControlPlaneIPs))
	log.Printf("  workers:        %d", len(spec.WorkerIPs))
	if spec.HighlyAvailable() {
		log.Printf("  VIP:            %s", spec.VIP)
	}

	return nil
}
