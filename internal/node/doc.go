// Package node runs the front board's control loop.
//
// One call to Tick is one iteration, and its phases always run in this order:
//
//  1. relay every byte received from the camera bridge to the wireless link;
//  2. route every byte received from the wireless link, sending replies back
//     and forwarding unrecognized bytes to the bridge;
//  3. poll the debounced button and toggle power on a press edge;
//  4. compute the output frame and write it to the actuators.
//
// Bookkeeping (heartbeat, status tracker) follows the four phases and never
// changes node state. All node state is owned by the Node and touched only
// from the goroutine calling Tick.
package node
