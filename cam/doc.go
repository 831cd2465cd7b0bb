// Package cam computes class activation maps for convolutional network
// predictions using the Score-CAM method.
//
// Score-CAM is gradient-free: it extracts the activation maps of a
// convolutional layer, turns each channel into a soft mask over the
// input, runs the masked copies through the full model, and weights
// each channel by the score its mask obtains. Faster Score-CAM keeps
// only the highest-variance channels to cut the number of forward
// passes.
//
// The host model is a collaborator behind the Model interface; any
// executor that can run a bulk forward pass and expose an intermediate
// activation tensor can be explained. Package nn ships a reference
// implementation.
//
// Example:
//
//	engine := cam.New(network)
//	score, _ := cam.NewCategoricalScore(281)
//	heatmap, err := engine.ExplainOne(score, input, nil)
package cam
