// Command geofence runs the landmark geofence rotation service.
package main

func main() {
	Execute()
}
