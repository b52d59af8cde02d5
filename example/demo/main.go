/*
Example code showing how to register planar trackables from a manifest
file and run the detect/track pipeline over a sequence of frame images.
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/kalwalt/artoolkitx"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	manifestFile := flag.String("db", "../data/markers/manifest.txt", "Trackable manifest file (id,filename,scale per line)")
	markerDir := flag.String("markers", "../data/markers", "Directory holding the manifest's marker images")
	frameGlob := flag.String("frames", "../data/frames/*.jpg", "Glob of grayscale frame images to process in order")
	fx := flag.Float64("fx", 700, "Camera focal length X, in pixels")
	fy := flag.Float64("fy", 700, "Camera focal length Y, in pixels")

	flag.Parse()

	entries, err := planartracker.LoadManifest(*manifestFile)

	if err != nil {
		log.Fatal("Error reading manifest: ", err)
	}

	tracker := planartracker.NewTracker()

	for _, e := range entries {
		path := filepath.Join(*markerDir, e.Filename)
		img := gocv.IMRead(path, gocv.IMReadGrayScale)

		if img.Empty() {
			log.Fatal("Error reading marker image from: ", path)
		}

		err := tracker.AddMarker(img, e.Filename, img.Cols(), img.Rows(), e.ID, e.Scale)
		img.Close()

		if err != nil {
			log.Fatalf("Error registering marker %d (%s): %v", e.ID, e.Filename, err)
		}
	}

	frames, err := filepath.Glob(*frameGlob)

	if err != nil || len(frames) == 0 {
		log.Fatal("Error finding frame images: ", err)
	}

	first := gocv.IMRead(frames[0], gocv.IMReadGrayScale)

	if first.Empty() {
		log.Fatal("Error reading first frame from: ", frames[0])
	}

	cp := planartracker.CameraParameters{
		XSize: first.Cols(),
		YSize: first.Rows(),
		Mat34: [12]float64{
			*fx, 0, float64(first.Cols()) / 2, 0,
			0, *fy, float64(first.Rows()) / 2, 0,
			0, 0, 1, 0,
		},
		DistFunctionVersion: planartracker.DistVersion4,
		DistFactor:          []float64{0, 0, 0, 0, 0},
	}

	first.Close()

	if err := tracker.Initialise(cp); err != nil {
		log.Fatal("Error initialising tracker: ", err)
	}

	for _, path := range frames {
		frame := gocv.IMRead(path, gocv.IMReadGrayScale)

		if frame.Empty() {
			log.Printf("skipping unreadable frame %s", path)
			continue
		}

		tracker.ProcessFrame(frame)
		frame.Close()

		for _, id := range tracker.GetImageIds() {
			if !tracker.IsTrackableVisible(id) {
				continue
			}

			var pose [3][4]float32

			if tracker.GetTrackablePose(id, &pose) {
				fmt.Printf("%s: trackable %d visible, pose row0=%v\n", filepath.Base(path), id, pose[0])
			}
		}
	}
}
